// Package indexer splits documents into chunks, embeds them and writes a
// persistent vector index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

const defaultBatchSize = 32

// Indexer builds an index directory from documents.
type Indexer struct {
	embedder  embedding.Embedder
	chunker   *Chunker
	indexType string
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build progress.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets how many chunks are embedded per EmbedBatch call.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithIndexType selects the vector index type ("memory" or "faiss").
func WithIndexType(t string) IndexerOption {
	return func(idx *Indexer) { idx.indexType = t }
}

// NewIndexer creates an indexer. It returns ErrInvalidChunking for bad chunk parameters.
func NewIndexer(embedder embedding.Embedder, chunkSize, chunkOverlap int, opts ...IndexerOption) (*Indexer, error) {
	chunker, err := NewChunker(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	idx := &Indexer{
		embedder:  embedder,
		chunker:   chunker,
		indexType: string(vector.IndexTypeMemory),
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx, nil
}

// Build chunks and embeds docs and writes the index to dir. The new index is
// assembled in a temporary sibling directory and swapped in by rename, so
// readers see either the previous index or the complete new one. Documents
// sharing an ID are indexed once.
func (idx *Indexer) Build(ctx context.Context, docs []*models.Document, dir string) (*models.Manifest, error) {
	start := idx.now()

	chunks, nDocs := idx.chunkAll(docs)
	if len(chunks) == 0 {
		return nil, &BuildError{Stage: StageChunk, Err: ErrNoChunks}
	}
	idx.logger.Info("chunked documents", zap.Int("documents", nDocs), zap.Int("chunks", len(chunks)))

	if err := idx.embed(ctx, chunks); err != nil {
		return nil, &BuildError{Stage: StageEmbed, Err: err}
	}

	vecIndex, err := idx.vectorIndex(ctx, chunks)
	if err != nil {
		return nil, &BuildError{Stage: StageIndex, Err: err}
	}
	defer vecIndex.Close()

	manifest := &models.Manifest{
		FormatVersion:  storage.FormatVersion,
		EmbeddingModel: idx.embedder.Model(),
		Dimensions:     idx.embedder.Dimensions(),
		IndexType:      vecIndex.Type(),
		ChunkSize:      idx.chunker.splitter.ChunkSize(),
		ChunkOverlap:   idx.chunker.splitter.ChunkOverlap(),
		Documents:      nDocs,
		Chunks:         len(chunks),
		BuiltAt:        start.UTC(),
	}

	tmp := dir + ".tmp-" + uuid.New().String()
	if err := idx.persist(ctx, tmp, chunks, vecIndex, manifest); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, &BuildError{Stage: StagePersist, Err: err}
	}
	if err := swapDir(tmp, dir); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, &BuildError{Stage: StagePersist, Err: err}
	}

	idx.logger.Info("index built",
		zap.String("path", dir),
		zap.String("model", manifest.EmbeddingModel),
		zap.Int("chunks", manifest.Chunks),
		zap.Duration("took", idx.now().Sub(start)))
	return manifest, nil
}

func (idx *Indexer) chunkAll(docs []*models.Document) ([]*models.Chunk, int) {
	var chunks []*models.Chunk
	seen := make(map[string]bool, len(docs))
	n := 0
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if seen[doc.ID] {
			idx.logger.Warn("skipping duplicate document", zap.String("id", doc.ID), zap.String("source", doc.Source))
			continue
		}
		seen[doc.ID] = true
		c := idx.chunker.Chunk(doc)
		if len(c) == 0 {
			idx.logger.Debug("document has no text", zap.String("source", doc.Source))
			continue
		}
		chunks = append(chunks, c...)
		n++
	}
	return chunks, n
}

func (idx *Indexer) embed(ctx context.Context, chunks []*models.Chunk) error {
	dims := idx.embedder.Dimensions()
	for start := 0; start < len(chunks); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Content
		}
		embs, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(embs) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embs), len(texts))
		}
		for i, e := range embs {
			if len(e) != dims {
				return fmt.Errorf("embedding for chunk %s has %d dimensions, want %d", chunks[start+i].ID, len(e), dims)
			}
			chunks[start+i].Embedding = e
		}
		idx.logger.Debug("embedded batch", zap.Int("from", start), zap.Int("to", end))
	}
	return nil
}

func (idx *Indexer) vectorIndex(ctx context.Context, chunks []*models.Chunk) (vector.VectorIndex, error) {
	vi, err := vector.NewVectorIndex(idx.indexType, idx.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(chunks))
	vecs := make([][]float32, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		vecs[i] = c.Embedding
	}
	if err := vi.Add(ctx, ids, vecs); err != nil {
		vi.Close()
		return nil, err
	}
	return vi, nil
}

func (idx *Indexer) persist(ctx context.Context, tmp string, chunks []*models.Chunk, vi vector.VectorIndex, m *models.Manifest) error {
	if err := os.MkdirAll(tmp, 0755); err != nil {
		return fmt.Errorf("create temp index dir: %w", err)
	}
	if err := vi.Save(storage.VectorsPath(tmp)); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	store, err := storage.NewSQLiteStorage(storage.ChunksPath(tmp))
	if err != nil {
		return err
	}
	if err := store.PutChunks(ctx, chunks); err != nil {
		store.Close()
		return fmt.Errorf("store chunks: %w", err)
	}
	if err := store.PutManifest(ctx, m); err != nil {
		store.Close()
		return fmt.Errorf("store manifest: %w", err)
	}
	return store.Close()
}

// swapDir moves tmp to dir. An existing dir is moved aside first and removed
// once tmp is in place; if the final rename fails it is moved back.
func swapDir(tmp, dir string) error {
	old := ""
	if _, err := os.Stat(dir); err == nil {
		old = dir + ".old-" + uuid.New().String()
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("move previous index aside: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat index dir: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("install new index: %w", err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return nil
}
