package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
)

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after question are moved first",
			args:     []string{"what do you do", "-output", "json"},
			expected: []string{"-output", "json", "what do you do"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-k", "3", "what do you do"},
			expected: []string{"-k", "3", "what do you do"},
		},
		{
			name:     "question only returns unchanged",
			args:     []string{"what do you do"},
			expected: []string{"what do you do"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"what", "projects", "-k", "5"},
			expected: []string{"-k", "5", "what", "projects"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderArgs(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("reorderArgs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestJoinArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"hello"}, "hello"},
		{"multiple words", []string{"what", "is", "kotae"}, "what is kotae"},
		{"quoted phrase", []string{"what is kotae"}, "what is kotae"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinArgs(tt.args); got != tt.expected {
				t.Errorf("joinArgs(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestStringList(t *testing.T) {
	var s stringList
	_ = s.Set("https://example.com/")
	_ = s.Set("https://example.com/about")
	if len(s) != 2 || s[1] != "https://example.com/about" {
		t.Errorf("stringList = %v", s)
	}
	if s.String() != "https://example.com/,https://example.com/about" {
		t.Errorf("String() = %q", s.String())
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

// testApp returns an app with a mock embedder config that scrapes pages from
// a local server.
func testApp(t *testing.T, pages map[string]string) (*app, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 32
	cfg.Storage.IndexPath = filepath.Join(t.TempDir(), "vectorstore", "db_faiss")
	for path := range pages {
		cfg.Corpus.URLs = append(cfg.Corpus.URLs, ts.URL+path)
	}
	return &app{cfg: cfg, logger: zap.NewNop()}, ts
}

func TestRebuildAndStatus(t *testing.T) {
	a, ts := testApp(t, map[string]string{
		"/":      "<html><body><p>Jack Hoang is a software engineer.</p></body></html>",
		"/about": "<html><body><p>He writes Go.</p><p>He lives in Jakarta.</p></body></html>",
	})
	e := embedding.NewMockEmbedder(32)
	ctx := context.Background()

	m, err := a.rebuild(ctx, e, []string{ts.URL + "/missing"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Documents != 2 || m.Chunks != 2 {
		t.Errorf("manifest = %+v", m)
	}

	st, err := statusFromDisk(ctx, a.cfg.Storage.IndexPath)
	if err != nil {
		t.Fatal(err)
	}
	if st.Chunks != 2 || st.Documents != 2 {
		t.Errorf("status = %+v", st)
	}
	if st.Manifest == nil || st.Manifest.Dimensions != 32 {
		t.Errorf("manifest = %+v", st.Manifest)
	}
	if st.DiskUsageBytes <= 0 {
		t.Errorf("disk usage = %d", st.DiskUsageBytes)
	}

	r, err := a.loadRetriever(ctx, e)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.Size() != 2 {
		t.Errorf("Size() = %d", r.Size())
	}
}

func TestRebuild_noDocuments(t *testing.T) {
	a, _ := testApp(t, nil)
	_, err := a.rebuild(context.Background(), embedding.NewMockEmbedder(32), nil, nil)
	if err == nil || !strings.Contains(err.Error(), "no documents") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadRetriever_notBuilt(t *testing.T) {
	a, _ := testApp(t, nil)
	_, err := a.loadRetriever(context.Background(), embedding.NewMockEmbedder(32))
	if !isIndexNotFound(err) {
		t.Errorf("err = %v, want index not found", err)
	}
}

func TestStatusFromDisk_notBuilt(t *testing.T) {
	if _, err := statusFromDisk(context.Background(), filepath.Join(t.TempDir(), "none")); err == nil {
		t.Error("expected error for missing index")
	}
}

func TestNewShell(t *testing.T) {
	a, _ := testApp(t, nil)
	a.secrets = config.Secrets{LLMAPIKey: "r8_test"}

	sh, err := a.newShell(nil, shellOptions{loginGate: true})
	if err != nil {
		t.Fatal(err)
	}
	if sh.LoginRequired() {
		t.Error("login should not be required when auth is disabled")
	}

	a.cfg.Auth.Enabled = true
	a.cfg.Auth.Username = "jack"
	if _, err := a.newShell(nil, shellOptions{loginGate: true}); err == nil {
		t.Error("expected error when auth is enabled without a password")
	}
	a.secrets.AuthPassword = "from-env"
	sh, err = a.newShell(nil, shellOptions{loginGate: true})
	if err != nil {
		t.Fatal(err)
	}
	if !sh.LoginRequired() {
		t.Error("login should be required")
	}
	sh, err = a.newShell(nil, shellOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sh.LoginRequired() {
		t.Error("the terminal shell should not gate on login")
	}
}

func TestNewShell_missingLLMKey(t *testing.T) {
	a, _ := testApp(t, nil)
	if _, err := a.newShell(nil, shellOptions{}); err == nil {
		t.Error("expected error without an llm api key")
	}
}
