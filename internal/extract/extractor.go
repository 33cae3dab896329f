// Package extract provides per-page text extraction from document files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Page is the text of one page of a document. Formats without pages yield a
// single Page numbered 0; spreadsheets yield one Page per sheet.
type Page struct {
	Number int
	Label  string // sheet name for spreadsheets, empty otherwise
	Text   string
}

// Extractor extracts plain text pages from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its pages.
// Returns an error if the file cannot be read or its content cannot be parsed.
func (e *Extractor) Extract(path string) ([]Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts pages from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) ([]Page, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return single(extractDOCX(content))
	case ".xlsx":
		return extractExcel(content)
	case ".html", ".htm":
		return single(extractHTML(content))
	default:
		return single(extractPlain(content))
	}
}

func single(text string, err error) ([]Page, error) {
	if err != nil {
		return nil, err
	}
	return []Page{{Number: 0, Text: text}}, nil
}
