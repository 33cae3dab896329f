package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParagraphSeparator joins paragraph texts taken from an HTML page.
const ParagraphSeparator = "\n\n"

// Paragraphs parses an HTML document and returns the text content of every
// <p> element in document order. Each paragraph's text is the concatenation of
// all its descendant text nodes, unmodified.
func Paragraphs(r io.Reader) ([]string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			var b strings.Builder
			collectText(n, &b)
			out = append(out, b.String())
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out, nil
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// extractHTML returns the paragraph text of a local HTML file.
func extractHTML(content []byte) (string, error) {
	paragraphs, err := Paragraphs(bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	return strings.Join(paragraphs, ParagraphSeparator), nil
}
