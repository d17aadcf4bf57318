// Package cluster implements the vector cluster store: deterministic K-Means
// partitioning with stable cluster identity, embedding nudges, and the
// snapshot-publishing orchestrator that owns all writes.
package cluster

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/hyperjump/latentfs/internal/config"
	"github.com/hyperjump/latentfs/internal/models"
	"github.com/hyperjump/latentfs/internal/vector"
)

// Engine partitions document embeddings into clusters. Recompute is a pure
// function of its inputs: identical documents and previous snapshot always
// produce identical output.
type Engine struct {
	targetClusters     int
	maxIterations      int
	nInit              int
	seed               int64
	stabilityThreshold float64
}

// NewEngine creates a cluster engine from policy config.
func NewEngine(cfg *config.ClusterConfig) *Engine {
	return &Engine{
		targetClusters:     cfg.TargetClusters,
		maxIterations:      cfg.MaxIterations,
		nInit:              cfg.NInit,
		seed:               cfg.Seed,
		stabilityThreshold: cfg.StabilityThreshold,
	}
}

// Recompute partitions docs into at most the configured number of clusters and
// matches the result against prev so that clusters with substantially
// unchanged membership keep their id and name. Clusters returned with an empty
// Name are new (or materially changed) and need naming by the caller.
// The returned map is document id -> assigned cluster id.
func (e *Engine) Recompute(docs []*models.Document, prev []*models.Cluster) ([]*models.Cluster, map[string]string, error) {
	if len(docs) == 0 {
		return nil, map[string]string{}, nil
	}

	sorted := make([]*models.Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	dims := len(sorted[0].Embedding)
	points := make([][]float32, len(sorted))
	for i, d := range sorted {
		if err := vector.Validate(d.Embedding, dims); err != nil {
			return nil, nil, fmt.Errorf("%w: document %s: %v", ErrInvalidEmbedding, d.ID, err)
		}
		points[i] = d.Embedding
	}

	k := e.targetClusters
	if k > len(sorted) {
		k = len(sorted)
	}
	if k < 1 {
		k = 1
	}

	res := runKMeans(points, k, e.maxIterations, e.nInit, e.seed)

	// Group member documents per cluster index; empty clusters are dropped.
	memberIdx := make(map[int][]*models.Document)
	for i, c := range res.assignments {
		memberIdx[c] = append(memberIdx[c], sorted[i])
	}
	indexes := make([]int, 0, len(memberIdx))
	for c := range memberIdx {
		indexes = append(indexes, c)
	}
	sort.Ints(indexes)

	clusters := make([]*models.Cluster, 0, len(indexes))
	for _, c := range indexes {
		members := memberIdx[c]
		embeddings := make([][]float32, len(members))
		ids := make([]string, len(members))
		for i, m := range members {
			embeddings[i] = m.Embedding
			ids[i] = m.ID
		}
		centroid := vector.Mean(embeddings)
		clusters = append(clusters, &models.Cluster{
			Centroid:            centroid,
			DocumentIDs:         ids,
			RepresentativeDocID: representative(members, centroid),
		})
	}

	e.carryIdentities(clusters, prev)

	assignments := make(map[string]string, len(sorted))
	for _, c := range clusters {
		for _, id := range c.DocumentIDs {
			assignments[id] = c.ID
		}
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })
	return clusters, assignments, nil
}

// carryIdentities assigns ids and names to the fresh clusters. Previous
// clusters, largest first, each claim the closest unclaimed new centroid
// within the similarity threshold and pass on their id. The name is carried
// too unless more than half of the new cluster's members changed, in which
// case it is cleared so the caller regenerates it. Unclaimed clusters get
// fresh ids.
func (e *Engine) carryIdentities(clusters []*models.Cluster, prev []*models.Cluster) {
	prevOrder := make([]*models.Cluster, len(prev))
	copy(prevOrder, prev)
	sort.Slice(prevOrder, func(i, j int) bool {
		if len(prevOrder[i].DocumentIDs) != len(prevOrder[j].DocumentIDs) {
			return len(prevOrder[i].DocumentIDs) > len(prevOrder[j].DocumentIDs)
		}
		return prevOrder[i].ID < prevOrder[j].ID
	})

	claimed := make(map[int]bool)
	for _, p := range prevOrder {
		best, bestSim := -1, e.stabilityThreshold
		for i, c := range clusters {
			if claimed[i] {
				continue
			}
			if sim := vector.CosineSimilarity(p.Centroid, c.Centroid); sim >= bestSim {
				best, bestSim = i, sim
			}
		}
		if best < 0 {
			continue
		}
		claimed[best] = true
		c := clusters[best]
		c.ID = p.ID
		if overlap(c.DocumentIDs, p.DocumentIDs)*2 >= len(c.DocumentIDs) {
			c.Name = p.Name
		}
	}
	for _, c := range clusters {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
	}
}

// representative returns the id of the member closest to the centroid by
// Euclidean distance, ties broken by lowest document id. Members arrive
// sorted by id, so the first strict improvement wins the tie.
func representative(members []*models.Document, centroid []float32) string {
	best, bestDist := "", -1.0
	for _, m := range members {
		d := vector.EuclideanDistance(m.Embedding, centroid)
		if best == "" || d < bestDist {
			best, bestDist = m.ID, d
		}
	}
	return best
}

func overlap(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, id := range b {
		set[id] = struct{}{}
	}
	n := 0
	for _, id := range a {
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n
}
