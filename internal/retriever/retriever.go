// Package retriever answers nearest-chunk queries against a built index.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Retriever embeds a question and returns the closest stored chunks. It is
// read-only and safe for concurrent use.
type Retriever struct {
	embedder embedding.Embedder
	index    vector.VectorIndex
	store    storage.ChunkStore
	manifest *models.Manifest
	logger   *zap.Logger
}

type options struct {
	queryCacheSize int
	logger         *zap.Logger
}

// Option configures Load.
type Option func(*options)

// WithQueryCache caches up to n query embeddings.
func WithQueryCache(n int) Option {
	return func(o *options) { o.queryCacheSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New assembles a Retriever from open parts. manifest may be nil.
func New(embedder embedding.Embedder, index vector.VectorIndex, store storage.ChunkStore, manifest *models.Manifest, opts ...Option) *Retriever {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.queryCacheSize > 0 {
		embedder = embedding.NewCachedEmbedder(embedder, o.queryCacheSize)
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		store:    store,
		manifest: manifest,
		logger:   utils.OrNop(o.logger),
	}
}

// Load opens the index directory dir. The index must have been built with the
// same embedding model and dimensions as embedder.
func Load(ctx context.Context, dir string, embedder embedding.Embedder, opts ...Option) (*Retriever, error) {
	fail := func(err error) (*Retriever, error) {
		return nil, &LoadError{Location: dir, Err: err}
	}
	if info, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fail(fmt.Errorf("%w: %v", ErrIndexNotFound, err))
		}
		return fail(err)
	} else if !info.IsDir() {
		return fail(fmt.Errorf("%w: not a directory", ErrIndexNotFound))
	}

	store, err := storage.OpenSQLiteStorage(storage.ChunksPath(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fail(fmt.Errorf("%w: %v", ErrIndexNotFound, err))
		}
		return fail(err)
	}
	r, err := load(ctx, dir, store, embedder)
	if err != nil {
		store.Close()
		return fail(err)
	}
	o := New(embedder, r.index, store, r.manifest, opts...)
	o.logger.Info("index loaded",
		zap.String("path", dir),
		zap.String("model", r.manifest.EmbeddingModel),
		zap.Int("chunks", r.manifest.Chunks))
	return o, nil
}

func load(ctx context.Context, dir string, store storage.ChunkStore, embedder embedding.Embedder) (*Retriever, error) {
	m, err := store.GetManifest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoManifest) {
			return nil, fmt.Errorf("%w: no manifest", ErrIndexNotFound)
		}
		return nil, err
	}
	if m.FormatVersion != storage.FormatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", ErrIncompatibleIndex, m.FormatVersion, storage.FormatVersion)
	}
	if m.EmbeddingModel != embedder.Model() {
		return nil, fmt.Errorf("%w: index %q, embedder %q", ErrEmbeddingMismatch, m.EmbeddingModel, embedder.Model())
	}
	if m.Dimensions != embedder.Dimensions() {
		return nil, fmt.Errorf("%w: index has %d dimensions, embedder %d", ErrIncompatibleIndex, m.Dimensions, embedder.Dimensions())
	}

	vi, err := vector.NewVectorIndex(m.IndexType, m.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleIndex, err)
	}
	if err := vi.Load(storage.VectorsPath(dir)); err != nil {
		vi.Close()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrIndexNotFound, err)
		}
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	n, err := store.CountChunks(ctx)
	if err != nil {
		vi.Close()
		return nil, err
	}
	if int(n) != vi.Size() {
		vi.Close()
		return nil, fmt.Errorf("%w: %d vectors for %d chunks", ErrIncompatibleIndex, vi.Size(), n)
	}
	return &Retriever{index: vi, manifest: m}, nil
}

// Search returns the k chunks closest to query, nearest first. Ties keep the
// order chunks were indexed in. A negative k is ErrInvalidK, an empty index is
// ErrEmptyIndex, and k == 0 returns no chunks.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error) {
	if k < 0 {
		return nil, &RetrievalError{Err: ErrInvalidK}
	}
	if r.index.Size() == 0 {
		return nil, &RetrievalError{Err: ErrEmptyIndex}
	}
	if k == 0 {
		return []models.RetrievedChunk{}, nil
	}

	q, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &RetrievalError{Err: fmt.Errorf("embed query: %w", err)}
	}
	hits, err := r.index.Search(ctx, q, k)
	if err != nil {
		return nil, &RetrievalError{Err: fmt.Errorf("vector search: %w", err)}
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	chunks, err := r.store.GetChunks(ctx, ids)
	if err != nil {
		return nil, &RetrievalError{Err: fmt.Errorf("resolve chunks: %w", err)}
	}

	out := make([]models.RetrievedChunk, len(hits))
	for i, h := range hits {
		out[i] = models.RetrievedChunk{Chunk: chunks[i], Distance: h.Distance}
	}
	r.logger.Debug("retrieved chunks", zap.Int("k", k), zap.Int("hits", len(out)))
	return out, nil
}

// Manifest returns the manifest of the loaded index, or nil.
func (r *Retriever) Manifest() *models.Manifest {
	return r.manifest
}

// Size returns the number of indexed chunks.
func (r *Retriever) Size() int {
	return r.index.Size()
}

// Close releases the vector index and the chunk store.
func (r *Retriever) Close() error {
	err := r.index.Close()
	if r.store != nil {
		if cerr := r.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
