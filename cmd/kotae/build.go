package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/pkg/utils"
)

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	var urls, dirs stringList
	fs.Var(&urls, "url", "extra page to scrape (repeatable)")
	fs.Var(&dirs, "dir", "extra directory of documents (repeatable)")
	_ = fs.Parse(os.Args[2:])

	a, err := newApp(*configPath, *debug)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := a.newEmbedder()
	if err != nil {
		fatalf("Failed to create embedder: %v", err)
	}
	defer embedder.Close()

	start := time.Now()
	m, err := a.rebuild(ctx, embedder, urls, dirs)
	if err != nil {
		fatalf("Build failed: %v", err)
	}
	fmt.Printf("Indexed %d documents into %d chunks in %s\n", m.Documents, m.Chunks, time.Since(start).Round(time.Millisecond))
	fmt.Printf("Index written to %s\n", a.cfg.Storage.IndexPath)
}

func runScrape() {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outDir := fs.String("out", "", "write each page to <dir>/<slug>.txt instead of stdout")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	a, err := newApp(*configPath, false)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.close()

	urls := fs.Args()
	if len(urls) == 0 {
		urls = a.cfg.Corpus.URLs
	}
	if len(urls) == 0 {
		fatalf("Usage: kotae scrape [-out dir] <url>... (or set corpus.urls)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	docs, errs := a.corpus(nil, nil).Web.Collect(ctx, urls)
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	if *outDir == "" {
		cli.WriteScrapedPages(os.Stdout, docs)
	} else {
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			fatalf("Failed to create %s: %v", *outDir, err)
		}
		for _, d := range docs {
			path := filepath.Join(*outDir, utils.Slug(d.Source)+".txt")
			if err := os.WriteFile(path, []byte(d.Content+"\n"), 0644); err != nil {
				fatalf("Failed to write %s: %v", path, err)
			}
			fmt.Println(path)
		}
	}
	if len(docs) == 0 {
		os.Exit(1)
	}
}

// runWatch rebuilds the index on disk whenever the corpus directories change.
// A running server picks the new index up on restart or with its own -watch.
func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	initial := fs.Bool("initial", true, "build once before watching")
	_ = fs.Parse(os.Args[2:])

	a, err := newApp(*configPath, *debug)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.close()
	logger := a.logger
	if len(a.cfg.Corpus.Directories) == 0 {
		fatalf("Nothing to watch: set corpus.directories")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := a.newEmbedder()
	if err != nil {
		fatalf("Failed to create embedder: %v", err)
	}
	defer embedder.Close()

	rebuild := func() {
		m, err := a.rebuild(ctx, embedder, nil, nil)
		if err != nil {
			logger.Warn("rebuild failed", zap.Error(err))
			return
		}
		logger.Info("index rebuilt", zap.Int("documents", m.Documents), zap.Int("chunks", m.Chunks))
	}
	if *initial {
		rebuild()
	}

	w := newIndexWatcher(a, func(paths []string) {
		logger.Info("corpus changed", zap.Strings("paths", paths))
		rebuild()
	})
	if err := w.Start(ctx); err != nil {
		fatalf("Failed to start watcher: %v", err)
	}
	for _, d := range w.Directories() {
		fmt.Printf("Watching %s\n", d)
	}
	<-ctx.Done()
	w.Stop()
}
