package cluster

import "errors"

// Sentinel errors for the cluster store. Write operations are all-or-nothing:
// any of these surfacing from a write means the published snapshot is unchanged.
var (
	// ErrEmbeddingUnavailable means the embedding backend could not be reached
	// or timed out; the whole write is aborted.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrInvalidEmbedding means an embedding is empty, has NaN/Inf values, or
	// the wrong dimensionality. Rejected before clustering ever runs.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrInvalidInput means a request carried malformed content, such as a
	// blank text in an ingest batch.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDocumentNotFound means the referenced document id is unknown.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrClusterNotFound means the referenced cluster id is not in the current snapshot.
	ErrClusterNotFound = errors.New("cluster not found")

	// ErrNamingUnavailable means the naming backend failed; non-fatal, the
	// deterministic fallback label is used instead.
	ErrNamingUnavailable = errors.New("naming backend unavailable")
)
