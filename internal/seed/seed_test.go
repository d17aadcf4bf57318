package seed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type fakeIngestor struct {
	got []string
	err error
}

func (f *fakeIngestor) Ingest(ctx context.Context, texts []string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.got = texts
	ids := make([]string, len(texts))
	for i := range ids {
		ids[i] = "id"
	}
	return ids, nil
}

func TestCorpusIsNonTrivial(t *testing.T) {
	texts := Corpus()
	if len(texts) < 20 {
		t.Fatalf("corpus has only %d texts", len(texts))
	}
	seen := make(map[string]bool)
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			t.Errorf("text %d is blank", i)
		}
		if seen[text] {
			t.Errorf("duplicate text: %q", text)
		}
		seen[text] = true
	}
}

func TestCorpusReturnsCopy(t *testing.T) {
	a := Corpus()
	a[0] = "mutated"
	if Corpus()[0] == "mutated" {
		t.Fatal("Corpus returns shared backing array")
	}
}

func TestLoad(t *testing.T) {
	ing := &fakeIngestor{}
	ids, err := Load(context.Background(), ing, zap.NewNop())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(ids) != len(Corpus()) {
		t.Errorf("got %d ids for %d texts", len(ids), len(Corpus()))
	}
	if len(ing.got) != len(Corpus()) {
		t.Errorf("ingestor received %d texts", len(ing.got))
	}
}

func TestLoadPropagatesError(t *testing.T) {
	ing := &fakeIngestor{err: errors.New("backend down")}
	if _, err := Load(context.Background(), ing, zap.NewNop()); err == nil {
		t.Fatal("expected error")
	}
}
