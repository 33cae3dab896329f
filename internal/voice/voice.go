// Package voice renders answer text as speech through a hosted text-to-speech service.
package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// ErrEmptyText is returned when there is nothing to speak.
var ErrEmptyText = errors.New("no text to synthesize")

// Renderer turns text into playable audio.
type Renderer interface {
	Synthesize(ctx context.Context, text string) (*models.Audio, error)
}

// RenderError is returned when speech could not be produced.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("speech synthesis failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// New creates the renderer described by cfg. It returns a nil Renderer and no
// error when speech is disabled.
func New(cfg config.VoiceConfig, apiKey string, logger *zap.Logger) (Renderer, error) {
	if !cfg.EnabledOrDefault() {
		return nil, nil
	}
	r, err := NewElevenLabs(ElevenLabsConfig{
		BaseURL:      cfg.BaseURL,
		APIKey:       apiKey,
		Voice:        cfg.Voice,
		Model:        cfg.Model,
		OutputFormat: cfg.OutputFormat,
		Timeout:      time.Duration(cfg.TimeoutSecs) * time.Second,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// StaticRenderer returns fixed audio or a fixed error.
type StaticRenderer struct {
	Audio *models.Audio
	Err   error

	mu    sync.Mutex
	texts []string
}

// Synthesize records text and returns the canned result.
func (r *StaticRenderer) Synthesize(ctx context.Context, text string) (*models.Audio, error) {
	r.mu.Lock()
	r.texts = append(r.texts, text)
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Err: err}
	}
	if r.Err != nil {
		return nil, &RenderError{Err: r.Err}
	}
	return r.Audio, nil
}

// Texts returns every text passed to Synthesize.
func (r *StaticRenderer) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}
