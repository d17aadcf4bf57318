package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/latentfs/internal/cluster"
	"github.com/hyperjump/latentfs/internal/config"
	"github.com/hyperjump/latentfs/internal/embedding"
	"github.com/hyperjump/latentfs/internal/models"
	"github.com/hyperjump/latentfs/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = ":memory:"
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 64
	cfg.Cluster.TargetClusters = 3
	cfg.Cluster.DebounceSeconds = -1 // no debounce in tests

	store, err := cluster.NewStore(st, embedding.NewMockEmbedder(64), &cfg.Cluster)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return NewServer(store, st, cfg, zap.NewNop())
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func ingestDocs(t *testing.T, handler http.Handler, n int) []string {
	t.Helper()
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("test document %d about subject %d", i, i%3)
	}
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/ingest", models.IngestRequest{Texts: texts})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.IngestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode ingest response: %v", err)
	}
	return resp.DocumentIDs
}

func TestHandleHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(t).Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
}

func TestHandleIngest(t *testing.T) {
	s := newTestServer(t)
	h := s.Router()

	ids := ingestDocs(t, h, 5)
	if len(ids) != 5 {
		t.Fatalf("expected 5 document ids, got %d", len(ids))
	}

	rec := doJSON(t, h, http.MethodGet, "/api/v1/documents", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("documents returned %d", rec.Code)
	}
	var docs models.DocumentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatalf("failed to decode documents response: %v", err)
	}
	if docs.Count != 5 {
		t.Errorf("document count = %d, want 5", docs.Count)
	}
}

func TestHandleIngestBadRequests(t *testing.T) {
	h := newTestServer(t).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body returned %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/ingest", models.IngestRequest{Texts: []string{"ok", "  "}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank text returned %d, want 400", rec.Code)
	}
}

func TestHandleIngestEmptyBatch(t *testing.T) {
	h := newTestServer(t).Router()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/ingest", models.IngestRequest{Texts: nil})
	if rec.Code != http.StatusCreated {
		t.Fatalf("empty batch returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.IngestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("count = %d, want 0", resp.Count)
	}
}

func TestHandleClusterEmptyCorpus(t *testing.T) {
	rec := doJSON(t, newTestServer(t).Router(), http.MethodGet, "/api/v1/cluster", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cluster on empty corpus returned %d, want 404", rec.Code)
	}
}

func TestHandleCluster(t *testing.T) {
	h := newTestServer(t).Router()
	ids := ingestDocs(t, h, 8)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/cluster", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cluster returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.ClusterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode cluster response: %v", err)
	}
	if len(resp.Folders) == 0 {
		t.Fatal("no folders in cluster response")
	}
	if len(resp.Documents) != len(ids) {
		t.Errorf("cluster response has %d documents, want %d", len(resp.Documents), len(ids))
	}
	for _, f := range resp.Folders {
		if f.Name == "" {
			t.Errorf("folder %s has no name", f.ID)
		}
	}
}

func TestHandleReEmbed(t *testing.T) {
	h := newTestServer(t).Router()
	ids := ingestDocs(t, h, 10)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/cluster", nil)
	var view models.ClusterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode cluster response: %v", err)
	}
	if len(view.Folders) < 2 {
		t.Skip("fewer than two folders, cannot pick a foreign target")
	}

	var doc *models.Document
	for _, d := range view.Documents {
		if d.ID == ids[0] {
			doc = d
			break
		}
	}
	var target string
	for _, f := range view.Folders {
		if f.ID != doc.ClusterID {
			target = f.ID
			break
		}
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/re-embed", models.ReEmbedRequest{
		DocumentID:     doc.ID,
		TargetFolderID: target,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("re-embed returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.ReEmbedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode re-embed response: %v", err)
	}
	if !resp.Success {
		t.Error("success = false")
	}
	if resp.NewClusterID == "" {
		t.Error("new_cluster_id is empty")
	}
	// The response reports the document's actual folder afterwards.
	for _, d := range resp.UpdatedClusters.Documents {
		if d.ID == doc.ID && d.ClusterID != resp.NewClusterID {
			t.Errorf("document in %s but response says %s", d.ClusterID, resp.NewClusterID)
		}
	}
}

func TestHandleReEmbedErrors(t *testing.T) {
	h := newTestServer(t).Router()
	ids := ingestDocs(t, h, 4)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/re-embed", models.ReEmbedRequest{
		DocumentID:     "missing",
		TargetFolderID: "also-missing",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown document returned %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/re-embed", models.ReEmbedRequest{
		DocumentID:     ids[0],
		TargetFolderID: "missing",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown folder returned %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/re-embed", models.ReEmbedRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing fields returned %d, want 400", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	h := newTestServer(t).Router()
	ingestDocs(t, h, 3)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode status response: %v", err)
	}
	if resp["documents"].(float64) != 3 {
		t.Errorf("documents = %v, want 3", resp["documents"])
	}
	if _, ok := resp["config"]; !ok {
		t.Error("status response missing config")
	}
}
