// Package embedding provides text embedding via the OpenAI API, with a
// deterministic mock for tests, plus an LRU embedding cache.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
