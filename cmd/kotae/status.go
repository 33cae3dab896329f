package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/storage"
)

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}

	var st *cli.Status
	if *serverURL != "" {
		st, err = statusViaHTTP(*serverURL)
	} else {
		cfg, _, loadErr := loadConfig(*configPath)
		if loadErr != nil {
			fatalf("Failed to load config: %v", loadErr)
		}
		st, err = statusFromDisk(context.Background(), cfg.Storage.IndexPath)
	}
	if err != nil {
		fatalf("Status failed: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// statusFromDisk reads counts and the manifest from the chunk store of the
// index at dir without loading vectors.
func statusFromDisk(ctx context.Context, dir string) (*cli.Status, error) {
	store, err := storage.OpenSQLiteStorage(storage.ChunksPath(dir))
	if err != nil {
		return nil, fmt.Errorf("open index at %s: %w", dir, err)
	}
	defer store.Close()

	st := &cli.Status{IndexPath: dir}
	chunks, err := store.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	docs, err := store.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	st.Chunks, st.Documents = int(chunks), int(docs)
	if st.Manifest, err = store.GetManifest(ctx); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if st.DiskUsageBytes, err = storage.DiskUsageBytes(dir); err != nil {
		return nil, fmt.Errorf("disk usage: %w", err)
	}
	return st, nil
}

func statusViaHTTP(serverURL string) (*cli.Status, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var st cli.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if st.Documents == 0 && st.Manifest != nil {
		st.Documents = st.Manifest.Documents
	}
	return &st, nil
}
