package embedding

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/pkg/utils"
)

// New creates the embedder selected by cfg.Provider and wraps it with an LRU
// cache when cfg.CacheSize is positive. apiKey is used by the openai provider.
func New(cfg config.EmbeddingConfig, apiKey string, logger *zap.Logger) (Embedder, error) {
	logger = utils.OrNop(logger)
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "mock", "":
		e = NewMockEmbedder(cfg.Dimensions)
	case "onnx":
		e, err = NewONNXEmbedder(ONNXConfig{
			ModelPath:  cfg.ModelPath,
			ModelName:  cfg.ModelName,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
	case "openai":
		e, err = NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     apiKey,
			Model:      cfg.ModelName,
			Dimensions: cfg.Dimensions,
			Timeout:    time.Duration(cfg.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s embedder: %w", cfg.Provider, err)
	}
	logger.Debug("embedder ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", e.Model()),
		zap.Int("dimensions", e.Dimensions()))
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize), nil
	}
	return e, nil
}
