// Package embedding provides text embedders and an LRU cache in front of them.
package embedding

import "context"

// Embedder produces vector embeddings for text. Model identifies the embedding
// model; indexes record it so that queries are embedded by the same model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
	Close() error
}
