package cluster

import (
	"fmt"

	"github.com/hyperjump/latentfs/internal/vector"
	"github.com/hyperjump/latentfs/pkg/utils"
)

// ReEmbedder nudges a document's embedding toward a target centroid by
// weighted average: new = (1-alpha)*current + alpha*target. With normalize
// set the blend is rescaled to unit length, matching embedding backends that
// emit unit-norm vectors; without it the blend is returned exactly.
type ReEmbedder struct {
	alpha     float64
	normalize bool
}

// NewReEmbedder creates a re-embedder. alpha must be in [0, 1].
func NewReEmbedder(alpha float64, normalize bool) (*ReEmbedder, error) {
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha must be between 0.0 and 1.0, got %g", alpha)
	}
	return &ReEmbedder{alpha: alpha, normalize: normalize}, nil
}

// Alpha returns the configured nudge strength.
func (r *ReEmbedder) Alpha() float64 {
	return r.alpha
}

// Nudge returns the blended embedding. The inputs are not modified.
func (r *ReEmbedder) Nudge(current, target []float32) ([]float32, error) {
	if err := vector.Validate(current, 0); err != nil {
		return nil, fmt.Errorf("%w: current embedding: %v", ErrInvalidEmbedding, err)
	}
	if err := vector.Validate(target, len(current)); err != nil {
		return nil, fmt.Errorf("%w: target centroid: %v", ErrInvalidEmbedding, err)
	}

	out := make([]float32, len(current))
	for i := range current {
		out[i] = float32((1-r.alpha)*float64(current[i]) + r.alpha*float64(target[i]))
	}
	if r.normalize {
		utils.NormalizeL2(out)
	}
	return out, nil
}
