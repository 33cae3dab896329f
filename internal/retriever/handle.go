package retriever

import (
	"context"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// Handle holds the current Retriever and lets a rebuilt index replace it while
// searches run. A replaced Retriever is closed once in-flight searches finish.
type Handle struct {
	mu sync.RWMutex
	r  *Retriever
}

// NewHandle returns a Handle serving r.
func NewHandle(r *Retriever) *Handle {
	return &Handle{r: r}
}

// Search delegates to the current Retriever.
func (h *Handle) Search(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.r.Search(ctx, query, k)
}

// Manifest returns the current index manifest.
func (h *Handle) Manifest() *models.Manifest {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.r.Manifest()
}

// Size returns the current number of indexed chunks.
func (h *Handle) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.r.Size()
}

// Swap installs r and closes the previous Retriever.
func (h *Handle) Swap(r *Retriever) error {
	h.mu.Lock()
	old := h.r
	h.r = r
	h.mu.Unlock()
	if old != nil && old != r {
		return old.Close()
	}
	return nil
}

// Close closes the current Retriever.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.r == nil {
		return nil
	}
	err := h.r.Close()
	h.r = nil
	return err
}
