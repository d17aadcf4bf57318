package cluster

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/latentfs/internal/config"
	"github.com/hyperjump/latentfs/internal/embedding"
	"github.com/hyperjump/latentfs/internal/models"
	"github.com/hyperjump/latentfs/internal/naming"
	"github.com/hyperjump/latentfs/internal/storage"
	"github.com/hyperjump/latentfs/internal/vector"
)

const defaultNamingSampleSize = 5

// Store owns all mutation of the document corpus and publishes immutable
// snapshots. Writes are serialized behind a single mutex; reads load the
// current snapshot without locking. A published snapshot is never modified.
type Store struct {
	mu   sync.Mutex
	snap atomic.Pointer[models.Snapshot]

	storage    storage.Storage
	embedder   embedding.Embedder
	namer      naming.Namer
	fallback   *naming.FallbackNamer
	engine     *Engine
	reembedder *ReEmbedder

	sampleSize    int
	debounce      time.Duration
	lastRecluster time.Time

	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNamer sets an LLM-backed namer tried before the deterministic fallback.
func WithNamer(n naming.Namer) Option {
	return func(s *Store) { s.namer = n }
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithNamingSampleSize sets how many member texts are sent to the namer.
func WithNamingSampleSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.sampleSize = n
		}
	}
}

// NewStore creates a cluster store and publishes an empty version-0 snapshot.
func NewStore(st storage.Storage, emb embedding.Embedder, cfg *config.ClusterConfig, opts ...Option) (*Store, error) {
	re, err := NewReEmbedder(cfg.Alpha, cfg.NormalizeOrDefault())
	if err != nil {
		return nil, err
	}
	s := &Store{
		storage:    st,
		embedder:   emb,
		fallback:   naming.NewFallbackNamer(),
		engine:     NewEngine(cfg),
		reembedder: re,
		sampleSize: defaultNamingSampleSize,
		debounce:   cfg.Debounce(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap.Store(&models.Snapshot{Timestamp: time.Now().UTC()})
	return s, nil
}

// Snapshot returns the current published snapshot. Never nil.
func (s *Store) Snapshot() *models.Snapshot {
	return s.snap.Load()
}

// Rehydrate loads all persisted documents and runs one full re-cluster,
// rebuilding the folder view after a restart.
func (s *Store) Rehydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.storage.GetAllDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	s.logger.Info("rehydrating from storage", zap.Int("documents", len(docs)))
	return s.reclusterLocked(ctx, docs)
}

// Ingest embeds the given texts, persists them as documents, and re-clusters.
// Blank texts are rejected. An empty batch is a no-op: no documents are
// created and the snapshot version does not change.
func (s *Store) Ingest(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	trimmed := make([]string, len(texts))
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
		trimmed[i] = t
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(embeddings) != len(trimmed) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingUnavailable, len(embeddings), len(trimmed))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.corpusDimsLocked()
	for i, emb := range embeddings {
		if dims == 0 {
			dims = len(emb)
		}
		if len(emb) != dims {
			return nil, fmt.Errorf("%w: text %d has %d dimensions, corpus has %d", ErrInvalidEmbedding, i, len(emb), dims)
		}
	}

	now := time.Now().UTC()
	prev := s.snap.Load()
	docs := make([]*models.Document, 0, len(prev.Documents)+len(trimmed))
	docs = append(docs, prev.Documents...)

	ids := make([]string, len(trimmed))
	for i, text := range trimmed {
		doc := &models.Document{
			ID:        uuid.NewString(),
			Text:      text,
			Embedding: embeddings[i],
			Metadata:  map[string]interface{}{"source": "ingest", "batch_index": i},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.storage.UpsertDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to persist document: %w", err)
		}
		ids[i] = doc.ID
		docs = append(docs, doc)
	}

	if err := s.reclusterLocked(ctx, docs); err != nil {
		return nil, err
	}
	s.logger.Info("ingested documents", zap.Int("count", len(ids)))
	return ids, nil
}

// ReEmbed nudges the document's embedding toward the target folder's centroid
// and re-clusters. The returned cluster id is the document's actual assignment
// afterwards, which is not guaranteed to be the requested target. If the
// document already sits in the target folder, nothing changes.
func (s *Store) ReEmbed(ctx context.Context, docID, targetID string) (string, *models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap.Load()
	doc := snap.Document(docID)
	if doc == nil {
		return "", nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}
	target := snap.Cluster(targetID)
	if target == nil {
		return "", nil, fmt.Errorf("%w: %s", ErrClusterNotFound, targetID)
	}
	if doc.ClusterID == targetID {
		return targetID, snap, nil
	}

	nudged, err := s.reembedder.Nudge(doc.Embedding, target.Centroid)
	if err != nil {
		return "", nil, err
	}

	updated := doc.Clone()
	updated.Embedding = nudged
	updated.UpdatedAt = time.Now().UTC()
	if err := s.storage.UpsertDocument(ctx, updated); err != nil {
		return "", nil, fmt.Errorf("failed to persist document: %w", err)
	}

	docs := make([]*models.Document, len(snap.Documents))
	for i, d := range snap.Documents {
		if d.ID == docID {
			docs[i] = updated
		} else {
			docs[i] = d
		}
	}

	if s.debounce > 0 && time.Since(s.lastRecluster) < s.debounce {
		// Within the debounce window: keep memberships, refresh derived state.
		s.refreshLocked(docs, snap)
	} else if err := s.reclusterLocked(ctx, docs); err != nil {
		return "", nil, err
	}

	next := s.snap.Load()
	final := next.Document(docID)
	s.logger.Info("re-embedded document",
		zap.String("document_id", docID),
		zap.String("target_cluster", targetID),
		zap.String("actual_cluster", final.ClusterID))
	return final.ClusterID, next, nil
}

// reclusterLocked runs a full re-cluster over docs, names any new clusters,
// persists changed assignments, and publishes the next snapshot.
// Caller holds s.mu.
func (s *Store) reclusterLocked(ctx context.Context, docs []*models.Document) error {
	prev := s.snap.Load()
	clusters, assignments, err := s.engine.Recompute(docs, prev.Clusters)
	if err != nil {
		return err
	}

	next := make([]*models.Document, len(docs))
	byID := make(map[string]*models.Document, len(docs))
	for i, d := range docs {
		nd := d
		if cid := assignments[d.ID]; cid != d.ClusterID {
			nd = d.Clone()
			nd.ClusterID = cid
			if err := s.storage.UpsertDocument(ctx, nd); err != nil {
				return fmt.Errorf("failed to persist assignment: %w", err)
			}
		}
		next[i] = nd
		byID[nd.ID] = nd
	}

	for _, c := range clusters {
		if c.Name == "" {
			c.Name = s.nameCluster(ctx, c, byID)
		}
	}

	s.publishLocked(clusters, next, prev.Version)
	s.lastRecluster = time.Now()
	return nil
}

// refreshLocked recomputes centroids and representatives for the current
// memberships without re-running clustering, and publishes the next snapshot.
// Caller holds s.mu.
func (s *Store) refreshLocked(docs []*models.Document, snap *models.Snapshot) {
	byID := make(map[string]*models.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	clusters := make([]*models.Cluster, len(snap.Clusters))
	for i, c := range snap.Clusters {
		members := make([]*models.Document, 0, len(c.DocumentIDs))
		for _, id := range c.DocumentIDs {
			if d, ok := byID[id]; ok {
				members = append(members, d)
			}
		}
		embeddings := make([][]float32, len(members))
		for j, m := range members {
			embeddings[j] = m.Embedding
		}
		nc := *c
		nc.Centroid = meanOrKeep(embeddings, c.Centroid)
		nc.RepresentativeDocID = representative(members, nc.Centroid)
		clusters[i] = &nc
	}
	s.publishLocked(clusters, docs, snap.Version)
}

func (s *Store) publishLocked(clusters []*models.Cluster, docs []*models.Document, prevVersion uint64) {
	s.snap.Store(&models.Snapshot{
		Clusters:  clusters,
		Documents: docs,
		Version:   prevVersion + 1,
		Timestamp: time.Now().UTC(),
	})
}

// nameCluster labels a cluster from sample member texts. The LLM namer is
// tried first when configured; any failure falls back to the deterministic
// namer, so naming never surfaces an error to callers.
func (s *Store) nameCluster(ctx context.Context, c *models.Cluster, byID map[string]*models.Document) string {
	samples := make([]string, 0, s.sampleSize)
	for _, id := range c.DocumentIDs {
		if len(samples) == s.sampleSize {
			break
		}
		if d, ok := byID[id]; ok {
			samples = append(samples, d.Text)
		}
	}
	if s.namer != nil {
		name, err := s.namer.Name(ctx, samples)
		if err == nil && name != "" {
			return name
		}
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrNamingUnavailable, err)
		}
		s.logger.Warn("cluster naming failed, using fallback",
			zap.String("cluster_id", c.ID), zap.Error(err))
	}
	name, _ := s.fallback.Name(ctx, samples)
	return name
}

func (s *Store) corpusDimsLocked() int {
	snap := s.snap.Load()
	if len(snap.Documents) == 0 {
		return 0
	}
	return len(snap.Documents[0].Embedding)
}

func meanOrKeep(embeddings [][]float32, prev []float32) []float32 {
	if len(embeddings) == 0 {
		return prev
	}
	return vector.Mean(embeddings)
}
