// Package naming generates human-readable folder names for document clusters.
package naming

import "context"

// Namer produces a short label for a cluster from sample member texts.
// Implementations may fail or time out; callers must fall back to the
// deterministic FallbackNamer so a folder is never left unnamed.
type Namer interface {
	Name(ctx context.Context, sampleTexts []string) (string, error)
}
