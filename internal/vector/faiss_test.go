//go:build faiss && cgo
// +build faiss,cgo

package vector

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestFAISSIndex_AddSearch(t *testing.T) {
	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, []string{"a", "b", "c"}, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d, want 3", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("results = %s, %s", results[0].ID, results[1].ID)
	}
	if results[0].Distance > results[1].Distance {
		t.Error("results not ascending by distance")
	}
}

func TestFAISSIndex_matchesMemoryIndex(t *testing.T) {
	ctx := context.Background()
	ids := []string{"a", "b", "c", "d"}
	vecs := [][]float32{{0.1, 0.2}, {0.5, -0.3}, {-0.7, 0.4}, {0.1, 0.25}}
	f, err := NewFAISSIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	m, _ := NewMemoryIndex(2)
	_ = f.Add(ctx, ids, vecs)
	_ = m.Add(ctx, ids, vecs)

	q := []float32{0.2, 0.2}
	fr, _ := f.Search(ctx, q, 4)
	mr, _ := m.Search(ctx, q, 4)
	for i := range mr {
		if fr[i].ID != mr[i].ID {
			t.Errorf("rank %d: faiss %s, memory %s", i, fr[i].ID, mr[i].ID)
		}
	}
}

func TestFAISSIndex_SearchEmpty(t *testing.T) {
	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestFAISSIndex_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors")

	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if err := idx.Add(ctx, []string{"a", "b", "c"}, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, suffix := range []string{".faiss", ".ids"} {
		if _, err := os.Stat(path + suffix); err != nil {
			t.Fatalf("%s file not created: %v", suffix, err)
		}
	}

	idx2, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx2.Close()
	if err := idx2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx2.Size() != 3 {
		t.Errorf("after Load size=%d, want 3", idx2.Size())
	}
	results, err := idx2.Search(ctx, []float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "c" {
		t.Errorf("Search after Load: got %v", results)
	}
}

func TestFAISSIndex_LoadMissingFile(t *testing.T) {
	idx, err := NewFAISSIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if err := idx.Load("/nonexistent/path/index"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load missing file: err = %v, want fs.ErrNotExist", err)
	}
}

func TestFAISSIndex_DimensionMismatch(t *testing.T) {
	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	if err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}}); err == nil {
		t.Error("expected error for dimension mismatch on Add")
	}
	_ = idx.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}})
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); err == nil {
		t.Error("expected error for dimension mismatch on Search")
	}
}

func TestFAISSIndex_InvalidDimension(t *testing.T) {
	if _, err := NewFAISSIndex(0); err == nil {
		t.Error("expected error for zero dimension")
	}
}
