package indexer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidChunking is returned for a chunk size or overlap outside 0 <= overlap < size.
	ErrInvalidChunking = errors.New("invalid chunking parameters")
	// ErrNoChunks is returned when the documents yield no text to index.
	ErrNoChunks = errors.New("no chunks to index")
)

// Build stages reported in BuildError.
const (
	StageChunk   = "chunk"
	StageEmbed   = "embed"
	StageIndex   = "index"
	StagePersist = "persist"
)

// BuildError is returned by Build. The previous index at the target location is left untouched.
type BuildError struct {
	Stage string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("index build failed at %s: %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
