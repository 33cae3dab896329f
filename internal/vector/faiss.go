//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unsafe"
)

// FAISSIndex is a vector index backed by a FAISS IndexFlatL2. FAISS labels are
// insertion ordinals; ids maps them back to chunk IDs.
type FAISSIndex struct {
	index      *C.FaissIndex
	dimensions int
	ids        []string
	mu         sync.RWMutex
}

// NewFAISSIndex creates an exact L2 FAISS index with the given dimension.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	var index *C.FaissIndexFlatL2
	if ret := C.faiss_IndexFlatL2_new_with(&index, C.idx_t(dimensions)); ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	return &FAISSIndex{index: index, dimensions: dimensions}, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Add appends vectors with the given IDs.
func (f *FAISSIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}

	n := len(vectors)
	flat := make([]float32, n*f.dimensions)
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), f.dimensions)
		}
		copy(flat[i*f.dimensions:(i+1)*f.dimensions], vec)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if ret := C.faiss_Index_add(f.index, C.idx_t(n), (*C.float)(unsafe.Pointer(&flat[0]))); ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	f.ids = append(f.ids, ids...)
	return nil
}

// Search returns the k vectors closest to query by squared L2 distance.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	ntotal := int(C.faiss_Index_ntotal(f.index))
	if k <= 0 || ntotal == 0 {
		return nil, nil
	}
	if k > ntotal {
		k = ntotal
	}

	distances := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	type hit struct {
		label int64
		dist  float64
	}
	hits := make([]hit, 0, k)
	for i := 0; i < k; i++ {
		if labels[i] < 0 || int(labels[i]) >= len(f.ids) {
			continue
		}
		hits = append(hits, hit{label: labels[i], dist: float64(distances[i])})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].label < hits[j].label
	})

	results := make([]*VectorResult, len(hits))
	for i, h := range hits {
		results[i] = &VectorResult{ID: f.ids[h.label], Distance: h.dist}
	}
	return results, nil
}

// Save writes base+".faiss" and the ordinal to ID list as base+".ids".
func (f *FAISSIndex) Save(base string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if base == "" {
		return fmt.Errorf("index path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	cPath := C.CString(base + ".faiss")
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}

	idFile, err := os.Create(base + ".ids")
	if err != nil {
		return fmt.Errorf("create id file: %w", err)
	}
	if err := gob.NewEncoder(idFile).Encode(f.ids); err != nil {
		idFile.Close()
		return fmt.Errorf("encode ids: %w", err)
	}
	return idFile.Close()
}

// Load reads the FAISS index and ID list saved under base.
func (f *FAISSIndex) Load(base string) error {
	faissPath := base + ".faiss"
	if _, err := os.Stat(faissPath); err != nil {
		return fmt.Errorf("stat FAISS index: %w", err)
	}

	idFile, err := os.Open(base + ".ids")
	if err != nil {
		return fmt.Errorf("open id file: %w", err)
	}
	defer idFile.Close()
	var ids []string
	if err := gob.NewDecoder(idFile).Decode(&ids); err != nil {
		return fmt.Errorf("decode ids: %w", err)
	}

	cPath := C.CString(faissPath)
	defer C.free(unsafe.Pointer(cPath))
	var loaded *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &loaded); ret != 0 {
		return fmt.Errorf("failed to load FAISS index: %s", faissLastError())
	}
	if d := int(C.faiss_Index_d(loaded)); d != f.dimensions {
		C.faiss_Index_free(loaded)
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", d, f.dimensions)
	}
	if n := int(C.faiss_Index_ntotal(loaded)); n != len(ids) {
		C.faiss_Index_free(loaded)
		return fmt.Errorf("FAISS index has %d vectors but %d ids", n, len(ids))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = loaded
	f.ids = ids
	return nil
}

// Size returns the number of vectors.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Dimensions returns the vector dimension.
func (f *FAISSIndex) Dimensions() int {
	return f.dimensions
}

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
