package answer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Synthesizer renders the prompt and asks the Generator for an answer.
type Synthesizer struct {
	generator Generator
	prompt    *PromptTemplate
	params    DecodingParams
	logger    *zap.Logger
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) SynthesizerOption {
	return func(s *Synthesizer) { s.logger = l }
}

// NewSynthesizer returns a Synthesizer.
func NewSynthesizer(g Generator, prompt *PromptTemplate, params DecodingParams, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{generator: g, prompt: prompt, params: params}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// Generate answers question from chunks. Every failure is a *SynthesisError.
func (s *Synthesizer) Generate(ctx context.Context, question string, chunks []models.RetrievedChunk) (*models.Answer, error) {
	prompt, err := s.prompt.Render(question, chunks)
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}
	s.logger.Debug("generating answer",
		zap.String("model", s.generator.Model()),
		zap.Int("chunks", len(chunks)),
		zap.Int("prompt_len", len(prompt)))

	text, err := s.generator.Generate(ctx, prompt, s.params)
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &SynthesisError{Err: ErrEmptyCompletion}
	}
	return &models.Answer{Text: text, Sources: chunks}, nil
}
