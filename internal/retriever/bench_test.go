package retriever

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
)

func BenchmarkSearch(b *testing.B) {
	e := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	docs := make([]*models.Document, 1000)
	for i := range docs {
		docs[i] = &models.Document{
			ID:      fmt.Sprintf("web:%d", i),
			Source:  fmt.Sprintf("https://example.com/%d", i),
			Content: fmt.Sprintf("Paragraph %d about projects, talks and open source work.", i),
		}
	}
	dir := filepath.Join(b.TempDir(), "db_faiss")
	idx, err := indexer.NewIndexer(e, 500, 100)
	if err != nil {
		b.Fatal(err)
	}
	if _, err := idx.Build(ctx, docs, dir); err != nil {
		b.Fatal(err)
	}
	r, err := Load(ctx, dir, e)
	if err != nil {
		b.Fatal(err)
	}
	defer r.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Search(ctx, "what open source work has he done", 2)
	}
}
