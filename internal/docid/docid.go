// Package docid provides deterministic document and chunk IDs derived from source identifiers.
package docid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const (
	webPrefix  = "web:"
	filePrefix = "file:"
)

// ForURL returns a stable document ID for a web page. The scheme and host are
// lowercased and a trailing slash on the path is ignored, so
// "https://Example.com/about/" and "https://example.com/about" share an ID.
func ForURL(raw string) string {
	return webPrefix + digest(normalizeURL(raw))
}

// ForFile returns a stable document ID for one page of a file. Same cleaned
// path and page always yield the same ID.
func ForFile(path string, page int) string {
	return fmt.Sprintf("%s%s:%d", filePrefix, digest(filepath.Clean(path)), page)
}

// Chunk returns the ID of the n-th chunk of a document.
func Chunk(documentID string, n int) string {
	return fmt.Sprintf("%s_%d", documentID, n)
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""
	return u.String()
}
