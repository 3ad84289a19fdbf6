// Package embedding converts text into fixed-dimensionality dense vectors.
package embedding

import "context"

// Embedder produces vector embeddings for text. EmbedBatch returns exactly one vector per
// input, in input order. Implementations fail with apperr.ErrEmbeddingUnavailable instead of
// returning zero vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
