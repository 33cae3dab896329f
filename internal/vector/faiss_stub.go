//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import (
	"context"
	"errors"
)

// ErrFAISSUnavailable is returned by every FAISSIndex method when FAISS support is not compiled in.
var ErrFAISSUnavailable = errors.New("FAISS not available: build with -tags=faiss and install FAISS library")

// FAISSIndex is a stub used when built without -tags=faiss.
type FAISSIndex struct{}

// NewFAISSIndex returns ErrFAISSUnavailable.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	return nil, ErrFAISSUnavailable
}

func (f *FAISSIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	return ErrFAISSUnavailable
}

func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	return nil, ErrFAISSUnavailable
}

func (f *FAISSIndex) Save(base string) error { return ErrFAISSUnavailable }
func (f *FAISSIndex) Load(base string) error { return ErrFAISSUnavailable }
func (f *FAISSIndex) Size() int              { return 0 }
func (f *FAISSIndex) Dimensions() int        { return 0 }
func (f *FAISSIndex) Close() error           { return nil }

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
