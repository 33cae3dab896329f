package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/retriever"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/watcher"
)

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", false, "rebuild the index when corpus directories change")
	build := fs.Bool("build", false, "build the index before serving when none exists")
	_ = fs.Parse(os.Args[2:])

	a, err := newApp(*configPath, *debug)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.close()
	logger := a.logger

	embedder, err := a.newEmbedder()
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	defer embedder.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := a.loadRetriever(ctx, embedder)
	if err != nil && *build && isIndexNotFound(err) {
		logger.Info("no index found, building", zap.String("index_path", a.cfg.Storage.IndexPath))
		if _, err = a.rebuild(ctx, embedder, nil, nil); err == nil {
			r, err = a.loadRetriever(ctx, embedder)
		}
	}
	if err != nil {
		logger.Fatal("Failed to load index", zap.Error(err),
			zap.String("hint", "run 'kotae build' first"))
	}
	handle := retriever.NewHandle(r)
	defer handle.Close()

	sh, err := a.newShell(handle, shellOptions{speech: true, loginGate: true})
	if err != nil {
		logger.Fatal("Failed to assemble answer pipeline", zap.Error(err))
	}

	var watchSvc *watcher.Watcher
	if *watch {
		watchSvc = newIndexWatcher(a, func(paths []string) {
			logger.Info("corpus changed, rebuilding", zap.Int("paths", len(paths)))
			if _, err := a.rebuild(ctx, embedder, nil, nil); err != nil {
				logger.Warn("rebuild failed", zap.Error(err))
				return
			}
			next, err := a.loadRetriever(ctx, embedder)
			if err != nil {
				logger.Warn("reload failed", zap.Error(err))
				return
			}
			if err := handle.Swap(next); err != nil {
				logger.Warn("closing previous index failed", zap.Error(err))
			}
		})
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv, err := server.NewServer(sh, handle, a.cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	if watchSvc != nil {
		watchSvc.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// newIndexWatcher watches the configured corpus directories.
func newIndexWatcher(a *app, onChange func(paths []string)) *watcher.Watcher {
	opts := []watcher.WatcherOption{}
	if a.cfg.Debug {
		opts = append(opts, watcher.WithLogger(a.logger))
	}
	return watcher.NewWatcher(
		a.cfg.Corpus.Directories,
		a.cfg.Corpus.Extensions,
		a.cfg.Corpus.RecursiveOrDefault(),
		onChange,
		opts...,
	)
}
