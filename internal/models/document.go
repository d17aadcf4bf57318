// Package models defines core data structures for documents, clusters, and snapshots.
package models

import "time"

// Document represents a stored document with its embedding vector.
// ClusterID is derived state: it is only ever set by the cluster engine,
// never directly by callers. An empty ClusterID means unclustered.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	Text      string                 `json:"text" db:"text"`
	Embedding []float32              `json:"embedding" db:"embedding"`
	ClusterID string                 `json:"cluster_id,omitempty" db:"cluster_id"`
	Metadata  map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// Clone returns a shallow copy of the document. The embedding slice is shared;
// callers that change the embedding must replace the slice, not write into it.
func (d *Document) Clone() *Document {
	c := *d
	return &c
}

// Cluster represents one semantic folder: a group of documents whose
// embeddings sit near a common centroid.
type Cluster struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Centroid            []float32 `json:"centroid"`
	DocumentIDs         []string  `json:"document_ids"`
	RepresentativeDocID string    `json:"representative_doc_id"`
}

// Snapshot is one immutable, versioned view of all documents and clusters.
// A published snapshot is never mutated; writers build a fresh one and swap it in.
type Snapshot struct {
	Clusters  []*Cluster  `json:"folders"`
	Documents []*Document `json:"documents"`
	Version   uint64      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
}

// Cluster returns the cluster with the given id, or nil.
func (s *Snapshot) Cluster(id string) *Cluster {
	for _, c := range s.Clusters {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Document returns the document with the given id, or nil.
func (s *Snapshot) Document(id string) *Document {
	for _, d := range s.Documents {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// IngestRequest is the input for document ingestion.
type IngestRequest struct {
	Texts []string `json:"texts"`
}

// IngestResponse reports the outcome of an ingestion.
type IngestResponse struct {
	Success     bool     `json:"success"`
	DocumentIDs []string `json:"document_ids"`
	Count       int      `json:"count"`
	Message     string   `json:"message"`
}

// ClusterResponse is the folder view returned to clients.
type ClusterResponse struct {
	Folders   []*Cluster  `json:"folders"`
	Documents []*Document `json:"documents"`
	Timestamp time.Time   `json:"timestamp"`
}

// ReEmbedRequest asks to nudge a document toward a target folder.
type ReEmbedRequest struct {
	DocumentID     string `json:"document_id"`
	TargetFolderID string `json:"target_folder_id"`
}

// ReEmbedResponse reports the document's actual cluster after the nudge.
// NewClusterID is the post-recompute assignment, which is not necessarily
// the requested target folder.
type ReEmbedResponse struct {
	Success         bool            `json:"success"`
	NewClusterID    string          `json:"new_cluster_id"`
	UpdatedClusters ClusterResponse `json:"updated_clusters"`
}

// DocumentResponse is the list view of stored documents.
type DocumentResponse struct {
	Documents []*Document `json:"documents"`
	Count     int         `json:"count"`
}
