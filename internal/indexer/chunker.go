package indexer

import (
	"github.com/hyperjump/kotae/internal/docid"
	"github.com/hyperjump/kotae/internal/models"
)

// Chunker turns documents into chunks using a Splitter.
type Chunker struct {
	splitter *Splitter
}

// NewChunker creates a chunker with the given size and overlap in characters.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	s, err := NewSplitter(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	return &Chunker{splitter: s}, nil
}

// Chunk splits a document into chunks. IDs are "<docID>_<n>" and every chunk
// carries a copy of the document's metadata.
func (c *Chunker) Chunk(doc *models.Document) []*models.Chunk {
	texts := c.splitter.Split(Preprocess(doc.Content))
	if len(texts) == 0 {
		return nil
	}
	chunks := make([]*models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &models.Chunk{
			ID:         docid.Chunk(doc.ID, i),
			DocumentID: doc.ID,
			Source:     doc.Source,
			Content:    text,
			ChunkIndex: i,
			Metadata:   copyMetadata(doc.Metadata),
		}
	}
	return chunks
}

func copyMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
