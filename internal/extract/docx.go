package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxDefaultDocumentPath = "word/document.xml"
	contentTypesPath        = "[Content_Types].xml"
	docxMainContentType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	wordprocessingNS        = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// extractDOCX returns the text of a .docx file. Runs inside a paragraph are
// concatenated and paragraphs are separated by a blank line, so the splitter
// can break on paragraph boundaries.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docPath := findDocxMainDocumentPath(zr)
	f := findZipFile(zr, docPath)
	if f == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("extract DOCX: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: parse %s: %w", f.Name, err)
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// findDocxMainDocumentPath reads [Content_Types].xml for the main document part,
// falling back to word/document.xml.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	f := findZipFile(zr, contentTypesPath)
	if f == nil {
		return docxDefaultDocumentPath
	}
	rc, err := f.Open()
	if err != nil {
		return docxDefaultDocumentPath
	}
	defer rc.Close()
	var ct contentTypes
	if err := xml.NewDecoder(rc).Decode(&ct); err != nil {
		return docxDefaultDocumentPath
	}
	for _, o := range ct.Overrides {
		if o.ContentType == docxMainContentType && o.PartName != "" {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return docxDefaultDocumentPath
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// docxParagraphs streams document XML and returns the non-empty text of each <w:p>.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if text := strings.TrimSpace(current.String()); text != "" {
		paragraphs = append(paragraphs, text)
	}
	return paragraphs, nil
}
