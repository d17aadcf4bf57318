package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(8)
	ctx := context.Background()
	a, err := e.Embed(ctx, "hello world")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "hello world")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same text produced different embeddings at index %d", i)
		}
	}
	c, _ := e.Embed(ctx, "different text")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical embeddings")
	}
}

func TestMockEmbedder_UnitNorm(t *testing.T) {
	e := NewMockEmbedder(16)
	emb, err := e.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatal(err)
	}
	if len(emb) != 16 {
		t.Fatalf("expected 16 dims, got %d", len(emb))
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
		t.Errorf("expected unit norm, got %f", math.Sqrt(sum))
	}
}

func TestMockEmbedder_Batch(t *testing.T) {
	e := NewMockEmbedder(4)
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(out))
	}
	single, _ := e.Embed(context.Background(), "b")
	for i := range single {
		if out[1][i] != single[i] {
			t.Fatal("batch embedding differs from single embedding")
		}
	}
}
