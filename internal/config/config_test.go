package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  index_path: "/tmp/kotae/db_faiss"
corpus:
  urls: ["https://example.com/", "https://example.com/about"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.IndexPath != "/tmp/kotae/db_faiss" {
		t.Errorf("index_path = %q", cfg.Storage.IndexPath)
	}
	if len(cfg.Corpus.URLs) != 2 {
		t.Errorf("urls = %v", cfg.Corpus.URLs)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Chunking.ChunkSize != 500 || cfg.Chunking.ChunkOverlap != 100 {
		t.Errorf("chunking = %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 2 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
	if cfg.LLM.Model != "meta/meta-llama-3-70b-instruct" || cfg.LLM.Temperature != 0.5 ||
		cfg.LLM.TopP != 1 || cfg.LLM.MaxNewTokens != 500 {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Voice.Voice != "Jack" || cfg.Voice.Model != "eleven_multilingual_v2" {
		t.Errorf("voice = %+v", cfg.Voice)
	}
	if !cfg.Voice.EnabledOrDefault() {
		t.Error("voice should default to enabled")
	}
	if cfg.Voice.FailurePolicy != VoicePolicyDegrade {
		t.Errorf("failure_policy = %q", cfg.Voice.FailurePolicy)
	}
	if cfg.Embedding.ModelName != "sentence-transformers/all-MiniLM-L6-v2" || cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if len(cfg.Corpus.Extensions) != 1 || cfg.Corpus.Extensions[0] != ".pdf" {
		t.Errorf("extensions = %v", cfg.Corpus.Extensions)
	}
	if !cfg.Corpus.RecursiveOrDefault() {
		t.Error("recursive should default to true")
	}
	if cfg.Persona.Title != "Jack Hoang AI Assistant" || cfg.Persona.Subject != "Jack Hoang and his work" {
		t.Errorf("persona = %+v", cfg.Persona)
	}
	if cfg.Auth.Enabled {
		t.Error("auth should default to disabled")
	}
}

func TestLoad_personaDerivesFromName(t *testing.T) {
	cfg, err := Load(writeConfig(t, "persona:\n  name: Ada\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Persona.AskLabel != "Ask anything about Ada:" {
		t.Errorf("ask_label = %q", cfg.Persona.AskLabel)
	}
	if cfg.Persona.Footer != "Powered by Ada" {
		t.Errorf("footer = %q", cfg.Persona.Footer)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  index_path: "./vectorstore/db_faiss"
corpus:
  directories: ["./data"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantIndex := filepath.Join(dir, "vectorstore", "db_faiss")
	if cfg.Storage.IndexPath != wantIndex {
		t.Errorf("index_path = %q, want %q", cfg.Storage.IndexPath, wantIndex)
	}
	if len(cfg.Corpus.Directories) != 1 || cfg.Corpus.Directories[0] != filepath.Join(dir, "data") {
		t.Errorf("directories = %v", cfg.Corpus.Directories)
	}
}

func TestLoad_expandPathRelativeToHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg, err := Load(writeConfig(t, "storage:\n  index_path: \"kotae/index\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.IndexPath != filepath.Join(home, "kotae", "index") {
		t.Errorf("index_path = %q", cfg.Storage.IndexPath)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"overlap not below size", "chunking:\n  chunk_size: 100\n  chunk_overlap: 100\n", "chunk_overlap"},
		{"negative top_k", "retrieval:\n  top_k: -1\n", "top_k"},
		{"unknown embedder", "embedding:\n  provider: word2vec\n", "embedding.provider"},
		{"unknown index", "vector:\n  index_type: hnsw\n", "vector.index_type"},
		{"unknown llm", "llm:\n  provider: local\n", "llm.provider"},
		{"unknown voice policy", "voice:\n  failure_policy: retry\n", "failure_policy"},
		{"auth without user", "auth:\n  enabled: true\n", "auth.username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_badYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [unterminated\n")); err == nil {
		t.Error("expected parse error")
	}
}
