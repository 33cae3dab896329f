package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/collect"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retriever"
	"github.com/hyperjump/kotae/internal/shell"
	"github.com/hyperjump/kotae/internal/voice"
	"github.com/hyperjump/kotae/pkg/utils"
)

// app holds what every command needs: config, secrets and a logger.
type app struct {
	cfg     *config.Config
	secrets config.Secrets
	logger  *zap.Logger
}

// newApp loads the config at configPath, reads .env files into the
// environment and resolves the secrets the config names.
func newApp(configPath string, debug bool) (*app, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.LoadEnvFiles(config.DefaultEnvFiles(resolved)...); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a := &app{
		cfg:     cfg,
		secrets: config.ResolveSecrets(cfg, os.Getenv),
		logger:  logger,
	}
	logger.Info("config loaded",
		zap.String("config_path", resolved),
		zap.Bool("debug", debugMode),
		zap.Stringer("secrets", a.secrets))
	return a, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func (a *app) newEmbedder() (embedding.Embedder, error) {
	return embedding.New(a.cfg.Embedding, a.secrets.EmbeddingAPIKey, a.logger)
}

// corpus returns the configured sources plus any extra URLs and directories.
func (a *app) corpus(urls, dirs []string) *collect.Corpus {
	c := a.cfg.Corpus
	timeout := time.Duration(c.TimeoutSecs) * time.Second
	web := collect.NewWebCollector(timeout, collect.WithWebLogger(a.logger))
	dir := collect.NewDirectoryCollector(extract.NewExtractor(), c.Extensions, c.RecursiveOrDefault(),
		collect.WithDirectoryLogger(a.logger))
	return &collect.Corpus{
		Web:         web,
		Directory:   dir,
		URLs:        append(append([]string(nil), c.URLs...), urls...),
		Directories: append(append([]string(nil), c.Directories...), dirs...),
	}
}

// rebuild collects the corpus and replaces the index. Sources that fail are
// logged and skipped.
func (a *app) rebuild(ctx context.Context, e embedding.Embedder, urls, dirs []string) (*models.Manifest, error) {
	docs, errs := a.corpus(urls, dirs).Collect(ctx)
	for _, err := range errs {
		a.logger.Warn("skipping source", zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.New("no documents collected; configure corpus.urls or corpus.directories")
	}
	idx, err := indexer.NewIndexer(e, a.cfg.Chunking.ChunkSize, a.cfg.Chunking.ChunkOverlap,
		indexer.WithLogger(a.logger),
		indexer.WithBatchSize(a.cfg.Embedding.BatchSize),
		indexer.WithIndexType(a.cfg.Vector.IndexType))
	if err != nil {
		return nil, err
	}
	return idx.Build(ctx, docs, a.cfg.Storage.IndexPath)
}

func (a *app) loadRetriever(ctx context.Context, e embedding.Embedder) (*retriever.Retriever, error) {
	return retriever.Load(ctx, a.cfg.Storage.IndexPath, e, retriever.WithLogger(a.logger))
}

// shellOptions controls how newShell assembles the pipeline.
type shellOptions struct {
	speech    bool
	loginGate bool
	topK      int
}

// newShell wires generation and speech around searcher.
func (a *app) newShell(searcher shell.Searcher, opts shellOptions) (*shell.Shell, error) {
	gen, err := answer.NewGenerator(a.cfg.LLM, a.secrets.LLMAPIKey)
	if err != nil {
		return nil, fmt.Errorf("llm: %w (set $%s)", err, a.cfg.LLM.APIKeyEnv)
	}
	prompt, err := answer.NewPromptTemplate(a.cfg.Persona.PromptTemplate, a.cfg.Persona.Subject)
	if err != nil {
		return nil, err
	}
	synth := answer.NewSynthesizer(gen, prompt, answer.ParamsFromConfig(a.cfg.LLM), answer.WithLogger(a.logger))

	var renderer voice.Renderer
	if opts.speech {
		if renderer, err = voice.New(a.cfg.Voice, a.secrets.VoiceAPIKey, a.logger); err != nil {
			return nil, fmt.Errorf("voice: %w (set $%s or voice.enabled: false)", err, a.cfg.Voice.APIKeyEnv)
		}
	}

	topK := a.cfg.Retrieval.TopK
	if opts.topK > 0 {
		topK = opts.topK
	}
	pipeline := shell.NewPipeline(searcher, synth, renderer, topK, shell.WithPipelineLogger(a.logger))

	shellOpts := []shell.Option{shell.WithLogger(a.logger), shell.WithVoicePolicy(a.cfg.Voice.FailurePolicy)}
	if opts.loginGate && a.cfg.Auth.Enabled {
		if a.secrets.AuthPassword == "" {
			return nil, fmt.Errorf("auth is enabled but $%s is not set", a.cfg.Auth.PasswordEnv)
		}
		shellOpts = append(shellOpts, shell.WithLoginGate(a.cfg.Auth.Username, a.secrets.AuthPassword))
	}
	return shell.New(pipeline, shellOpts...), nil
}

func isIndexNotFound(err error) bool {
	return errors.Is(err, retriever.ErrIndexNotFound)
}
