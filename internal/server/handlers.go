package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/latentfs/internal/cluster"
	"github.com/hyperjump/latentfs/internal/models"
	"github.com/hyperjump/latentfs/internal/storage"
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest request", zap.Int("texts", len(req.Texts)))
	ids, err := s.store.Ingest(r.Context(), req.Texts)
	if err != nil {
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, models.IngestResponse{
		Success:     true,
		DocumentIDs: ids,
		Count:       len(ids),
		Message:     "documents ingested",
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	s.respondJSON(w, http.StatusOK, models.DocumentResponse{
		Documents: snap.Documents,
		Count:     len(snap.Documents),
	})
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	if len(snap.Documents) == 0 {
		s.respondError(w, http.StatusNotFound, "no documents ingested yet")
		return
	}
	s.respondJSON(w, http.StatusOK, models.ClusterResponse{
		Folders:   snap.Clusters,
		Documents: snap.Documents,
		Timestamp: snap.Timestamp,
	})
}

func (s *Server) handleReEmbed(w http.ResponseWriter, r *http.Request) {
	var req models.ReEmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" || req.TargetFolderID == "" {
		s.respondError(w, http.StatusBadRequest, "document_id and target_folder_id are required")
		return
	}
	s.logger.Debug("re-embed request",
		zap.String("document_id", req.DocumentID),
		zap.String("target_folder_id", req.TargetFolderID))
	clusterID, snap, err := s.store.ReEmbed(r.Context(), req.DocumentID, req.TargetFolderID)
	if err != nil {
		s.logger.Error("re-embed failed", zap.Error(err))
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.ReEmbedResponse{
		Success:      true,
		NewClusterID: clusterID,
		UpdatedClusters: models.ClusterResponse{
			Folders:   snap.Clusters,
			Documents: snap.Documents,
			Timestamp: snap.Timestamp,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"documents":          len(snap.Documents),
		"embedding_provider": s.config.Embedding.Provider,
		"embedding_model":    s.config.Embedding.Model,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	docCount, err := s.storage.CountDocuments(r.Context())
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snap := s.store.Snapshot()
	resp := map[string]interface{}{
		"documents":        docCount,
		"clusters":         len(snap.Clusters),
		"snapshot_version": snap.Version,
		"config": map[string]interface{}{
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"target_clusters":      s.config.Cluster.TargetClusters,
			"alpha":                s.config.Cluster.Alpha,
			"database_path":        s.config.Storage.DatabasePath,
		},
	}
	if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// respondStoreError maps cluster store errors onto HTTP status codes.
func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cluster.ErrDocumentNotFound),
		errors.Is(err, cluster.ErrClusterNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cluster.ErrEmbeddingUnavailable):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, cluster.ErrInvalidEmbedding),
		errors.Is(err, cluster.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
