package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/latentfs/internal/models"
)

func TestSQLiteStorage_CRUD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	doc := &models.Document{
		ID:        "doc1",
		Text:      "some document text",
		Embedding: []float32{0.1, 0.2, 0.3},
		Metadata:  map[string]interface{}{"source": "test"},
	}
	if err := store.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "some document text" {
		t.Errorf("got %+v", got)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != float32(0.2) {
		t.Errorf("embedding round trip failed: %v", got.Embedding)
	}
	if got.ClusterID != "" {
		t.Errorf("expected unclustered document, got cluster %q", got.ClusterID)
	}
	if got.Metadata["source"] != "test" {
		t.Errorf("metadata round trip failed: %v", got.Metadata)
	}

	// Upsert replaces embedding and cluster id but keeps created_at.
	created := got.CreatedAt
	time.Sleep(10 * time.Millisecond)
	doc.Embedding = []float32{0.9, 0.8, 0.7}
	doc.ClusterID = "cluster-a"
	if err := store.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetDocument(ctx, "doc1")
	if got.Embedding[0] != float32(0.9) {
		t.Errorf("embedding not updated: %v", got.Embedding)
	}
	if got.ClusterID != "cluster-a" {
		t.Errorf("cluster id not updated: %q", got.ClusterID)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at changed on upsert: %v vs %v", got.CreatedAt, created)
	}
	if !got.UpdatedAt.After(created) {
		t.Errorf("updated_at not bumped: %v", got.UpdatedAt)
	}

	all, err := store.GetAllDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 doc, got %d", len(all))
	}

	count, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	if err := store.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, "doc1"); err == nil {
		t.Error("expected error for deleted document")
	}
}

func TestSQLiteStorage_GetAllOrder(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"c", "a", "b"} {
		doc := &models.Document{
			ID:        id,
			Text:      "text " + id,
			Embedding: []float32{float32(i)},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.UpsertDocument(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}
	all, err := store.GetAllDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(all))
	}
	if all[0].ID != "c" || all[1].ID != "a" || all[2].ID != "b" {
		t.Errorf("wrong order: %s %s %s", all[0].ID, all[1].ID, all[2].ID)
	}
}
