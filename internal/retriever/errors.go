package retriever

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexNotFound means nothing was built at the index location.
	ErrIndexNotFound = errors.New("index not found")
	// ErrIncompatibleIndex means the index layout, dimensions or contents do not line up.
	ErrIncompatibleIndex = errors.New("incompatible index")
	// ErrEmbeddingMismatch means the index was built with a different embedding model.
	ErrEmbeddingMismatch = errors.New("index was built with a different embedding model")
	// ErrEmptyIndex is returned by Search on an index with no vectors.
	ErrEmptyIndex = errors.New("index is empty")
	// ErrInvalidK is returned by Search for a negative k.
	ErrInvalidK = errors.New("k must not be negative")
)

// LoadError is returned when an index cannot be opened.
type LoadError struct {
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load index %s: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// RetrievalError is returned when a search fails.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed: %v", e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
