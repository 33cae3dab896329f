package answer

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/hyperjump/kotae/internal/models"
)

// DefaultPromptTemplate asks the model to answer about the persona subject
// straight away, using only the retrieved context.
const DefaultPromptTemplate = `Use the following pieces of information to answer the user's question about {{.Subject}}.
Do not acknowledge my request with "sure" or in any other way besides going straight to the answer. 
Don't include 'based on information provided' in your final answer.
Context: {{.Context}}
Question: {{.Question}}
Helpful answer:
`

// ContextSeparator joins chunk contents in the prompt context.
const ContextSeparator = "\n\n"

// PromptData is the data a prompt template is executed with.
type PromptData struct {
	Subject  string
	Context  string
	Question string
}

// PromptTemplate renders the prompt sent to the model.
type PromptTemplate struct {
	tmpl    *template.Template
	subject string
}

// NewPromptTemplate parses text, or DefaultPromptTemplate when text is empty.
func NewPromptTemplate(text, subject string) (*PromptTemplate, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPromptTemplate
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &PromptTemplate{tmpl: tmpl, subject: subject}, nil
}

// Render builds the prompt for question from chunks.
func (p *PromptTemplate) Render(question string, chunks []models.RetrievedChunk) (string, error) {
	var b strings.Builder
	err := p.tmpl.Execute(&b, PromptData{
		Subject:  p.subject,
		Context:  JoinContext(chunks),
		Question: question,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// JoinContext joins chunk contents with ContextSeparator in retrieval order.
func JoinContext(chunks []models.RetrievedChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.Chunk != nil {
			parts = append(parts, c.Chunk.Content)
		}
	}
	return strings.Join(parts, ContextSeparator)
}
