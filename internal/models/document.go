// Package models defines core data structures for documents, chunks, and answers.
package models

import "time"

// Metadata keys set by the collectors.
const (
	MetaKind   = "kind"   // "web" or "file"
	MetaSource = "source" // URL or file path
	MetaPage   = "page"   // 0-based page number for paged formats
)

// Document is one unit of collected text with its provenance.
type Document struct {
	ID       string                 `json:"id"`
	Source   string                 `json:"source"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Chunk is a contiguous slice of a Document's text. Embedding is populated during
// the build and is not persisted with the chunk payload.
type Chunk struct {
	ID         string                 `json:"id"`
	DocumentID string                 `json:"document_id"`
	Source     string                 `json:"source"`
	Content    string                 `json:"content"`
	ChunkIndex int                    `json:"chunk_index"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Embedding  []float32              `json:"-"`
}

// RetrievedChunk is a Chunk returned by a search with its distance to the query.
// Smaller distances are better.
type RetrievedChunk struct {
	Chunk    *Chunk  `json:"chunk"`
	Distance float64 `json:"distance"`
}

// Manifest describes a persisted index and how it was built.
type Manifest struct {
	FormatVersion  int       `json:"format_version"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimensions     int       `json:"dimensions"`
	IndexType      string    `json:"index_type"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	Documents      int       `json:"documents"`
	Chunks         int       `json:"chunks"`
	BuiltAt        time.Time `json:"built_at"`
}
