// Package answer turns a question and retrieved chunks into a grounded answer
// using a hosted language model.
package answer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/config"
)

// DecodingParams are the sampling settings sent with every completion request.
type DecodingParams struct {
	Temperature  float64
	TopP         float64
	MaxNewTokens int
}

// ParamsFromConfig returns the decoding parameters in cfg.
func ParamsFromConfig(cfg config.LLMConfig) DecodingParams {
	return DecodingParams{Temperature: cfg.Temperature, TopP: cfg.TopP, MaxNewTokens: cfg.MaxNewTokens}
}

// Generator completes a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, params DecodingParams) (string, error)
	Model() string
}

// NewGenerator creates the generator selected by cfg.Provider.
func NewGenerator(cfg config.LLMConfig, apiKey string) (Generator, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	var (
		g   Generator
		err error
	)
	switch cfg.Provider {
	case "replicate", "":
		g, err = NewReplicateGenerator(ReplicateConfig{
			BaseURL:      cfg.BaseURL,
			APIToken:     apiKey,
			Model:        cfg.Model,
			Timeout:      timeout,
			PollInterval: time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		})
	case "openai":
		g, err = NewChatGenerator(ChatConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  apiKey,
			Model:   cfg.Model,
			Timeout: timeout,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// StaticGenerator returns a fixed completion and records the prompts it was given.
type StaticGenerator struct {
	Completion string
	Err        error

	mu      sync.Mutex
	prompts []string
	params  DecodingParams
}

// NewStaticGenerator returns a generator that always answers completion.
func NewStaticGenerator(completion string) *StaticGenerator {
	return &StaticGenerator{Completion: completion}
}

// Generate records prompt and returns the canned completion or error.
func (g *StaticGenerator) Generate(ctx context.Context, prompt string, params DecodingParams) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.params = params
	g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return g.Completion, g.Err
}

// Model returns "static".
func (g *StaticGenerator) Model() string {
	return "static"
}

// LastPrompt returns the most recent prompt, or "".
func (g *StaticGenerator) LastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// LastParams returns the decoding parameters of the most recent call.
func (g *StaticGenerator) LastParams() DecodingParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.params
}

// Calls returns how many times Generate was called.
func (g *StaticGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}
