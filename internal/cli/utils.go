// Package cli formats answers, status and scraped pages for the kotae CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat is the format of command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates s; "" means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
	}
}

// SourceOutput is one supporting chunk of an answer.
type SourceOutput struct {
	Source   string                 `json:"source"`
	Distance float64                `json:"distance"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AnswerOutput is the result of `kotae ask`.
type AnswerOutput struct {
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Sources   []SourceOutput `json:"sources"`
	AudioFile string         `json:"audio_file,omitempty"`
	Took      time.Duration  `json:"-"`
}

// NewAnswerOutput collects the printable parts of ans.
func NewAnswerOutput(question string, ans *models.Answer, took time.Duration) *AnswerOutput {
	out := &AnswerOutput{Question: question, Answer: ans.Text, Sources: []SourceOutput{}, Took: took}
	for _, c := range ans.Sources {
		if c.Chunk == nil {
			continue
		}
		out.Sources = append(out.Sources, SourceOutput{
			Source:   c.Chunk.Source,
			Distance: c.Distance,
			Content:  c.Chunk.Content,
			Metadata: c.Chunk.Metadata,
		})
	}
	return out
}

// MarshalJSON reports Took in milliseconds.
func (a *AnswerOutput) MarshalJSON() ([]byte, error) {
	type alias AnswerOutput
	return json.Marshal(&struct {
		*alias
		Took int64 `json:"took_ms"`
	}{alias: (*alias)(a), Took: a.Took.Milliseconds()})
}

// WriteAnswer writes an answer to w in the given format.
func WriteAnswer(w io.Writer, out *AnswerOutput, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	fmt.Fprintf(w, "\n%s\n\n", out.Answer)
	if len(out.Sources) > 0 {
		fmt.Fprintln(w, "--- Sources ---")
		for i, s := range out.Sources {
			fmt.Fprintf(w, "[%d] %s (distance %.4f)\n", i+1, s.Source, s.Distance)
			fmt.Fprintf(w, "    %s\n", utils.Truncate(strings.Join(strings.Fields(s.Content), " "), 160))
		}
	}
	if out.AudioFile != "" {
		fmt.Fprintf(w, "\nAudio saved to %s\n", out.AudioFile)
	}
	fmt.Fprintf(w, "\nAnswered in %dms\n", out.Took.Milliseconds())
	return nil
}

// Status describes a persisted index.
type Status struct {
	IndexPath      string           `json:"index_path"`
	Manifest       *models.Manifest `json:"manifest"`
	Chunks         int              `json:"chunks"`
	Documents      int              `json:"documents"`
	DiskUsageBytes int64            `json:"disk_usage_bytes"`
}

// WriteStatus writes index status to w in the given format.
func WriteStatus(w io.Writer, st *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Index:            %s\n", st.IndexPath)
	fmt.Fprintf(w, "Documents:        %d\n", st.Documents)
	fmt.Fprintf(w, "Chunks:           %d\n", st.Chunks)
	fmt.Fprintf(w, "Disk usage:       %s\n", FormatBytes(st.DiskUsageBytes))
	if m := st.Manifest; m != nil {
		fmt.Fprintf(w, "Embedding model:  %s (%d dimensions)\n", m.EmbeddingModel, m.Dimensions)
		fmt.Fprintf(w, "Vector index:     %s\n", m.IndexType)
		fmt.Fprintf(w, "Chunking:         size %d, overlap %d\n", m.ChunkSize, m.ChunkOverlap)
		fmt.Fprintf(w, "Built at:         %s\n", m.BuiltAt.Local().Format(time.RFC3339))
	}
	return nil
}

// ScrapeSeparator follows each page in scrape output.
var ScrapeSeparator = strings.Repeat("=", 80)

// WriteScrapedPages prints the paragraph text of each collected page.
func WriteScrapedPages(w io.Writer, docs []*models.Document) {
	for _, d := range docs {
		fmt.Fprintf(w, "Content from %s:\n\n", d.Source)
		fmt.Fprintln(w, d.Content)
		fmt.Fprintf(w, "\n%s\n\n", ScrapeSeparator)
	}
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
