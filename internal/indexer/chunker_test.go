package indexer

import (
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func TestChunker_Chunk(t *testing.T) {
	c, err := NewChunker(20, 5)
	if err != nil {
		t.Fatal(err)
	}
	doc := &models.Document{
		ID:       "web:abc",
		Source:   "https://example.com/",
		Content:  "one two three four five six seven eight nine ten",
		Metadata: map[string]interface{}{models.MetaKind: "web"},
	}
	chunks := c.Chunk(doc)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.DocumentID != "web:abc" || ch.Source != "https://example.com/" {
			t.Errorf("chunk %d provenance = %s/%s", i, ch.DocumentID, ch.Source)
		}
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d ChunkIndex=%d", i, ch.ChunkIndex)
		}
		if want := "web:abc_" + string(rune('0'+i)); ch.ID != want {
			t.Errorf("chunk %d ID=%s, want %s", i, ch.ID, want)
		}
		if ch.Metadata[models.MetaKind] != "web" {
			t.Errorf("chunk %d metadata = %v", i, ch.Metadata)
		}
	}
	chunks[0].Metadata["extra"] = true
	if _, ok := doc.Metadata["extra"]; ok {
		t.Error("chunk metadata aliases the document's")
	}
}

func TestChunker_ChunkEmpty(t *testing.T) {
	c, _ := NewChunker(5, 1)
	if chunks := c.Chunk(&models.Document{ID: "d", Content: "   \n\t  "}); chunks != nil {
		t.Errorf("empty text should return nil, got %v", chunks)
	}
}

func TestNewChunker_invalid(t *testing.T) {
	if _, err := NewChunker(5, 5); err == nil {
		t.Error("expected error for overlap == size")
	}
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  a  b  ", "a b"},
		{"a\r\nb", "a\nb"},
		{"para one\n\n\n\npara\t two", "para one\n\npara two"},
		{"line  \n   next", "line\nnext"},
		{"\n\n  \n", ""},
	}
	for _, tt := range tests {
		if got := Preprocess(tt.in); got != tt.want {
			t.Errorf("Preprocess(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPreprocess_keepsParagraphsForSplitter(t *testing.T) {
	text := Preprocess("Alpha beta.\r\n\r\nGamma delta.")
	if !strings.Contains(text, "\n\n") {
		t.Errorf("paragraph break lost: %q", text)
	}
}
