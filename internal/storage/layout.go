package storage

import "path/filepath"

// FormatVersion is the on-disk layout version recorded in the manifest.
const FormatVersion = 1

// Files inside an index directory.
const (
	ChunksFile  = "chunks.db"
	VectorsBase = "vectors"
)

// ChunksPath returns the chunk store path inside index directory dir.
func ChunksPath(dir string) string {
	return filepath.Join(dir, ChunksFile)
}

// VectorsPath returns the base path the vector index is saved under inside dir.
func VectorsPath(dir string) string {
	return filepath.Join(dir, VectorsBase)
}
