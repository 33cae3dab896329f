package shell

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/voice"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Searcher returns the chunks nearest to a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error)
}

// Answerer generates an answer from a question and its supporting chunks.
type Answerer interface {
	Generate(ctx context.Context, question string, chunks []models.RetrievedChunk) (*models.Answer, error)
}

// Stage names a pipeline step.
type Stage string

const (
	StageRetrieve Stage = "retrieving"
	StageGenerate Stage = "generating"
	StageSpeak    Stage = "speaking"
	StageDone     Stage = "done"
)

// ProgressFunc receives the completion percentage and the stage about to run.
type ProgressFunc func(percent int, stage Stage)

// Outcome is the result of one pipeline run. When Err is set, Failed names
// the stage that produced it and the fields of later stages are empty.
type Outcome struct {
	Chunks []models.RetrievedChunk
	Answer *models.Answer
	Audio  *models.Audio

	Failed Stage
	Err    error
}

// Pipeline runs retrieval, answer generation and speech in strict sequence.
type Pipeline struct {
	searcher Searcher
	answerer Answerer
	renderer voice.Renderer
	topK     int
	logger   *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline returns a Pipeline. A nil renderer disables speech.
func NewPipeline(s Searcher, a Answerer, r voice.Renderer, topK int, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{searcher: s, answerer: a, renderer: r, topK: topK}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

// SpeechEnabled reports whether the pipeline renders audio.
func (p *Pipeline) SpeechEnabled() bool {
	return p.renderer != nil
}

// Run answers query. progress may be nil.
func (p *Pipeline) Run(ctx context.Context, query string, progress ProgressFunc) Outcome {
	if progress == nil {
		progress = func(int, Stage) {}
	}
	start := time.Now()
	var out Outcome

	progress(10, StageRetrieve)
	chunks, err := p.searcher.Search(ctx, query, p.topK)
	if err != nil {
		return Outcome{Failed: StageRetrieve, Err: err}
	}
	out.Chunks = chunks

	progress(65, StageGenerate)
	ans, err := p.answerer.Generate(ctx, query, chunks)
	if err != nil {
		out.Failed, out.Err = StageGenerate, err
		return out
	}
	out.Answer = ans

	if p.renderer != nil {
		progress(90, StageSpeak)
		audio, err := p.renderer.Synthesize(ctx, ans.Text)
		if err != nil {
			out.Failed, out.Err = StageSpeak, err
			return out
		}
		out.Audio = audio
	}

	progress(100, StageDone)
	p.logger.Debug("pipeline finished",
		zap.Int("chunks", len(chunks)),
		zap.Bool("audio", out.Audio != nil),
		zap.Duration("took", time.Since(start)))
	return out
}
