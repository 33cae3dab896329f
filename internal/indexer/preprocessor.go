package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes collected text before splitting. Line endings become
// "\n", runs of horizontal whitespace collapse to one space, spaces at line
// edges are removed and more than one blank line collapses to one, so the
// paragraph and line separators the splitter relies on survive.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	var b strings.Builder
	blank := 0
	for _, line := range lines {
		line = collapseSpaces(line)
		if line == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		b.WriteString(line)
		blank = 0
	}
	return b.String()
}

func collapseSpaces(line string) string {
	var b strings.Builder
	wasSpace := false
	for _, r := range line {
		if unicode.IsSpace(r) {
			wasSpace = true
			continue
		}
		if wasSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		wasSpace = false
	}
	return b.String()
}
