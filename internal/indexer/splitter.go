package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter is a recursive character splitter. It splits on the first separator
// that occurs in the text, recursing with finer separators on pieces that are
// still too long, then merges pieces back into chunks of at most ChunkSize runes
// where each chunk repeats up to ChunkOverlap runes of the previous one.
// Separators stay attached to the start of the piece that follows them.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewSplitter returns a Splitter using DefaultSeparators. Overlap must satisfy 0 <= overlap < size.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: size %d, overlap %d", ErrInvalidChunking, chunkSize, chunkOverlap)
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap, separators: DefaultSeparators}, nil
}

// ChunkSize returns the maximum chunk length in runes.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap returns the overlap between consecutive chunks in runes.
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Split returns the chunks of text. Each chunk is trimmed of surrounding
// whitespace and empty chunks are dropped.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var chunks, good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// merge packs pieces into chunks. Separators are already part of the pieces so
// they are joined without anything in between.
func (s *Splitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.chunkSize && len(current) > 0 {
			if c := joinTrimmed(current); c != "" {
				chunks = append(chunks, c)
			}
			for total > s.chunkOverlap || (total+n > s.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if c := joinTrimmed(current); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

func splitKeepingSeparator(text, sep string) []string {
	var out []string
	if sep == "" {
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func joinTrimmed(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
