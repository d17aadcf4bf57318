package embedding

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = string(openai.SmallEmbedding3)

const defaultMaxRetries = 3

// OpenAIEmbedder produces embeddings via the OpenAI API. Failed calls are
// retried with exponential backoff; successful embeddings are cached by text.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	timeout    time.Duration
	maxRetries int
	cache      *EmbeddingCache
}

// NewOpenAIEmbedder creates an OpenAI-backed embedder. dimensions is the
// requested output dimensionality; cacheSize bounds the embedding cache.
func NewOpenAIEmbedder(apiKey, model string, dimensions, cacheSize int, timeout time.Duration) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	return &OpenAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      openai.EmbeddingModel(model),
		dimensions: dimensions,
		timeout:    timeout,
		maxRetries: defaultMaxRetries,
		cache:      NewEmbeddingCache(cacheSize),
	}, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds all texts in one API call, preserving input order.
// Texts already in the cache are not re-requested.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	result := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if emb, ok := e.cache.Get(text); ok {
			result[i] = emb
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return result, nil
	}

	embeddings, err := e.requestEmbeddings(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, emb := range embeddings {
		e.cache.Set(missing[j], emb)
		result[missingIdx[j]] = emb
	}
	return result, nil
}

func (e *OpenAIEmbedder) requestEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := time.Second
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		resp, err := e.client.CreateEmbeddings(callCtx, openai.EmbeddingRequestStrings{
			Input:      texts,
			Model:      e.model,
			Dimensions: e.dimensions,
		})
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		if len(resp.Data) != len(texts) {
			lastErr = fmt.Errorf("attempt %d: expected %d embeddings, got %d", attempt+1, len(texts), len(resp.Data))
			continue
		}
		out := make([][]float32, len(texts))
		for _, d := range resp.Data {
			out[d.Index] = d.Embedding
		}
		return out, nil
	}
	return nil, fmt.Errorf("embedding request failed after %d attempts: %w", e.maxRetries+1, lastErr)
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the OpenAI client holds no resources to release.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
