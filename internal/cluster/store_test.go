package cluster

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hyperjump/latentfs/internal/config"
	"github.com/hyperjump/latentfs/internal/embedding"
	"github.com/hyperjump/latentfs/internal/storage"
)

func testClusterConfig() *config.ClusterConfig {
	return &config.ClusterConfig{
		TargetClusters:     3,
		Alpha:              config.DefaultAlpha,
		MaxIterations:      config.DefaultMaxIterations,
		NInit:              config.DefaultNInit,
		Seed:               config.DefaultSeed,
		StabilityThreshold: config.DefaultStabilityThreshold,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	s, err := NewStore(st, embedding.NewMockEmbedder(64), testClusterConfig())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func sampleTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("sample document number %d about topic %d", i, i%3)
	}
	return texts
}

func TestStoreIngest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids, err := s.Ingest(ctx, sampleTexts(9))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(ids) != 9 {
		t.Fatalf("expected 9 ids, got %d", len(ids))
	}

	snap := s.Snapshot()
	if snap.Version != 1 {
		t.Errorf("version = %d, want 1", snap.Version)
	}
	if len(snap.Documents) != 9 {
		t.Errorf("snapshot has %d documents, want 9", len(snap.Documents))
	}
	if len(snap.Clusters) == 0 {
		t.Fatal("no clusters after ingest")
	}

	assigned := make(map[string]bool)
	for _, c := range snap.Clusters {
		if c.Name == "" {
			t.Errorf("cluster %s has no name", c.ID)
		}
		if c.RepresentativeDocID == "" {
			t.Errorf("cluster %s has no representative", c.ID)
		}
		for _, id := range c.DocumentIDs {
			if assigned[id] {
				t.Errorf("document %s in multiple clusters", id)
			}
			assigned[id] = true
		}
	}
	if len(assigned) != 9 {
		t.Errorf("%d documents assigned, want 9", len(assigned))
	}
	for _, d := range snap.Documents {
		if d.ClusterID == "" {
			t.Errorf("document %s has no cluster", d.ID)
		}
	}
}

func TestStoreIngestEmptyBatch(t *testing.T) {
	s := newTestStore(t)

	ids, err := s.Ingest(context.Background(), nil)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}
	if v := s.Snapshot().Version; v != 0 {
		t.Errorf("version = %d, want 0", v)
	}
}

func TestStoreIngestRejectsBlankText(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Ingest(context.Background(), []string{"fine", "   "})
	if err == nil {
		t.Fatal("expected error for blank text")
	}
	if v := s.Snapshot().Version; v != 0 {
		t.Errorf("version = %d after failed ingest, want 0", v)
	}
	n, _ := s.storage.CountDocuments(context.Background())
	if n != 0 {
		t.Errorf("%d documents persisted after failed ingest", n)
	}
}

func TestStoreSnapshotImmutable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Ingest(ctx, sampleTexts(6)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	old := s.Snapshot()
	oldDocs := len(old.Documents)

	if _, err := s.Ingest(ctx, []string{"another document entirely"}); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(old.Documents) != oldDocs {
		t.Error("published snapshot was mutated by a later write")
	}
	if s.Snapshot().Version != old.Version+1 {
		t.Errorf("version = %d, want %d", s.Snapshot().Version, old.Version+1)
	}
}

func TestStoreReEmbed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids, err := s.Ingest(ctx, sampleTexts(12))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	snap := s.Snapshot()
	doc := snap.Document(ids[0])
	var target string
	for _, c := range snap.Clusters {
		if c.ID != doc.ClusterID {
			target = c.ID
			break
		}
	}
	if target == "" {
		t.Skip("all documents landed in one cluster")
	}

	actual, next, err := s.ReEmbed(ctx, doc.ID, target)
	if err != nil {
		t.Fatalf("ReEmbed failed: %v", err)
	}
	if next.Version != snap.Version+1 {
		t.Errorf("version = %d, want %d", next.Version, snap.Version+1)
	}
	// The reported cluster is the document's real assignment, not a promise.
	if got := next.Document(doc.ID).ClusterID; got != actual {
		t.Errorf("response says %s but document is in %s", actual, got)
	}

	persisted, err := s.storage.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	same := true
	for i := range persisted.Embedding {
		if persisted.Embedding[i] != doc.Embedding[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("embedding unchanged after re-embed")
	}
}

func TestStoreReEmbedNoOpWhenAlreadyInTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids, err := s.Ingest(ctx, sampleTexts(6))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	snap := s.Snapshot()
	doc := snap.Document(ids[0])

	actual, next, err := s.ReEmbed(ctx, doc.ID, doc.ClusterID)
	if err != nil {
		t.Fatalf("ReEmbed failed: %v", err)
	}
	if actual != doc.ClusterID {
		t.Errorf("cluster = %s, want %s", actual, doc.ClusterID)
	}
	if next.Version != snap.Version {
		t.Errorf("no-op bumped version from %d to %d", snap.Version, next.Version)
	}
}

func TestStoreReEmbedUnknownIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids, err := s.Ingest(ctx, sampleTexts(4))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	version := s.Snapshot().Version

	if _, _, err := s.ReEmbed(ctx, "missing", s.Snapshot().Clusters[0].ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
	if _, _, err := s.ReEmbed(ctx, ids[0], "missing"); !errors.Is(err, ErrClusterNotFound) {
		t.Errorf("expected ErrClusterNotFound, got %v", err)
	}
	if v := s.Snapshot().Version; v != version {
		t.Errorf("version changed on failed re-embed: %d -> %d", version, v)
	}
}

func TestStoreReEmbedDebounced(t *testing.T) {
	cfg := testClusterConfig()
	cfg.DebounceSeconds = 60

	st, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer st.Close()
	s, err := NewStore(st, embedding.NewMockEmbedder(64), cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	ids, err := s.Ingest(ctx, sampleTexts(12))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	snap := s.Snapshot()
	doc := snap.Document(ids[0])
	var target string
	for _, c := range snap.Clusters {
		if c.ID != doc.ClusterID {
			target = c.ID
			break
		}
	}
	if target == "" {
		t.Skip("all documents landed in one cluster")
	}

	// Within the debounce window memberships must not change, but the
	// snapshot still advances with refreshed centroids.
	actual, next, err := s.ReEmbed(ctx, doc.ID, target)
	if err != nil {
		t.Fatalf("ReEmbed failed: %v", err)
	}
	if actual != doc.ClusterID {
		t.Errorf("debounced re-embed moved document to %s", actual)
	}
	if next.Version != snap.Version+1 {
		t.Errorf("version = %d, want %d", next.Version, snap.Version+1)
	}
	if len(next.Clusters) != len(snap.Clusters) {
		t.Errorf("cluster count changed from %d to %d inside debounce window",
			len(snap.Clusters), len(next.Clusters))
	}
}

func TestStoreIngestEmbedderFailure(t *testing.T) {
	st, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer st.Close()
	s, err := NewStore(st, &failingEmbedder{}, testClusterConfig())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	_, err = s.Ingest(context.Background(), []string{"doomed"})
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if v := s.Snapshot().Version; v != 0 {
		t.Errorf("version = %d after failed ingest, want 0", v)
	}
}

func TestStoreRehydrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "documents.db")
	ctx := context.Background()

	st, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	first, err := NewStore(st, embedding.NewMockEmbedder(64), testClusterConfig())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ids, err := first.Ingest(ctx, sampleTexts(8))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("failed to close storage: %v", err)
	}

	st2, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}
	defer st2.Close()
	second, err := NewStore(st2, embedding.NewMockEmbedder(64), testClusterConfig())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := second.Rehydrate(ctx); err != nil {
		t.Fatalf("Rehydrate failed: %v", err)
	}

	snap := second.Snapshot()
	if len(snap.Documents) != len(ids) {
		t.Fatalf("rehydrated %d documents, want %d", len(snap.Documents), len(ids))
	}
	if len(snap.Clusters) == 0 {
		t.Error("no clusters after rehydrate")
	}
	for _, id := range ids {
		if snap.Document(id) == nil {
			t.Errorf("document %s missing after rehydrate", id)
		}
	}
}

// failingEmbedder always errors; it checks failure isolation in the store.
type failingEmbedder struct{}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("backend down")
}

func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("backend down")
}

func (f *failingEmbedder) Dimensions() int { return 64 }
func (f *failingEmbedder) Close() error    { return nil }
