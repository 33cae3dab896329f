// Package storage persists chunk payloads and the index manifest.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

var (
	// ErrChunkNotFound is returned when a requested chunk ID is not stored.
	ErrChunkNotFound = errors.New("chunk not found")
	// ErrNoManifest is returned when the store has no manifest.
	ErrNoManifest = errors.New("manifest not found")
)

// ChunkStore holds chunk payloads keyed by chunk ID plus the manifest of the
// index they belong to.
type ChunkStore interface {
	PutChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	// GetChunks returns chunks in the order of ids.
	GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error)
	CountChunks(ctx context.Context) (int64, error)
	CountDocuments(ctx context.Context) (int64, error)

	PutManifest(ctx context.Context, m *models.Manifest) error
	GetManifest(ctx context.Context) (*models.Manifest, error)

	Close() error
}
