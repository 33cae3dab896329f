package vector

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
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
	if idx.Size() != 3 || idx.Dimensions() != 3 {
		t.Errorf("Size=%d Dimensions=%d", idx.Size(), idx.Dimensions())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[0].Distance != 0 {
		t.Errorf("top result = %+v, want a at distance 0", results[0])
	}
	if results[1].ID != "b" || results[1].Distance <= results[0].Distance {
		t.Errorf("second result = %+v", results[1])
	}
}

func TestMemoryIndex_SearchKLargerThanSize(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"x", "y"}, [][]float32{{1, 0}, {0, 1}})
	results, err := idx.Search(ctx, []float32{0, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ID != "y" {
		t.Errorf("results = %+v", results)
	}
}

func TestMemoryIndex_tiesKeepInsertionOrder(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"first", "second", "third"}, [][]float32{{0, 1}, {0, -1}, {1, 0}})
	for i := 0; i < 5; i++ {
		results, err := idx.Search(ctx, []float32{0, 0}, 3)
		if err != nil {
			t.Fatal(err)
		}
		if results[0].ID != "first" || results[1].ID != "second" || results[2].ID != "third" {
			t.Fatalf("tie order not stable: %s %s %s", results[0].ID, results[1].ID, results[2].ID)
		}
	}
}

func TestMemoryIndex_SearchEmptyAndZeroK(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	results, err := idx.Search(ctx, []float32{1, 0}, 3)
	if err != nil || len(results) != 0 {
		t.Errorf("empty index: %v, %v", results, err)
	}
	_ = idx.Add(ctx, []string{"x"}, [][]float32{{1, 0}})
	results, err = idx.Search(ctx, []float32{1, 0}, 0)
	if err != nil || len(results) != 0 {
		t.Errorf("k=0: %v, %v", results, err)
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(3)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0, 0}, {1, 0}}); err == nil {
		t.Error("expected error for dimension mismatch on Add")
	}
	if idx.Size() != 0 {
		t.Errorf("failed Add should not add anything, size=%d", idx.Size())
	}
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); err == nil {
		t.Error("expected error for dimension mismatch on Search")
	}
	if err := idx.Add(ctx, []string{"a"}, nil); err == nil {
		t.Error("expected error for length mismatch")
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "vectors.bin")

	idx, _ := NewMemoryIndex(3)
	_ = idx.Add(ctx, []string{"doc_0", "doc_1", "a-much-longer-chunk-id_2"}, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	idx2, _ := NewMemoryIndex(3)
	if err := idx2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx2.Size() != 3 {
		t.Errorf("after Load size=%d, want 3", idx2.Size())
	}
	results, _ := idx2.Search(ctx, []float32{0, 0, 1}, 1)
	if len(results) != 1 || results[0].ID != "a-much-longer-chunk-id_2" {
		t.Errorf("Search after Load: got %+v", results)
	}
}

func TestMemoryIndex_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	idx, _ := NewMemoryIndex(2)

	err := idx.Load(filepath.Join(dir, "missing.bin"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file: err = %v, want fs.ErrNotExist", err)
	}

	other, _ := NewMemoryIndex(3)
	path := filepath.Join(dir, "three.bin")
	_ = other.Save(path)
	if err := idx.Load(path); err == nil {
		t.Error("expected dimension mismatch error")
	}

	truncated := filepath.Join(dir, "truncated.bin")
	_ = other.Add(context.Background(), []string{"a"}, [][]float32{{1, 2, 3}})
	_ = other.Save(truncated)
	data, _ := os.ReadFile(truncated)
	_ = os.WriteFile(truncated, data[:len(data)-4], 0644)
	if err := other.Load(truncated); err == nil {
		t.Error("expected error for truncated file")
	}
}

func TestMemoryIndex_SaveEmptyPath(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	if err := idx.Save(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestNewMemoryIndex_InvalidDimension(t *testing.T) {
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimension")
	}
}
