// Package vector provides exact nearest-neighbour indexes over embeddings.
package vector

import "context"

// VectorIndex stores vectors under string IDs and answers k-nearest-neighbour
// queries by squared euclidean (L2) distance.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns at most k results in ascending distance order. Equal
	// distances keep insertion order.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	// Save writes the index under base. Implementations may add file suffixes.
	Save(base string) error
	// Load replaces the contents with the index saved under base. A missing
	// index is an error wrapping fs.ErrNotExist.
	Load(base string) error
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// VectorResult is a single search hit. ID is the chunk ID.
type VectorResult struct {
	ID       string
	Distance float64 // squared L2; smaller is closer
}
