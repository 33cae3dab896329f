// Package config provides configuration loading and structs for the kotae assistant.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	LLM       LLMConfig       `yaml:"llm"`
	Voice     VoiceConfig     `yaml:"voice"`
	Persona   PersonaConfig   `yaml:"persona"`
	Auth      AuthConfig      `yaml:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs"`
}

// RequestTimeout returns the per-request timeout applied by the HTTP middleware.
func (s *ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSecs) * time.Second
}

// StorageConfig holds the location of the persisted index.
type StorageConfig struct {
	// IndexPath is a directory; it is replaced as a whole on every build.
	IndexPath string `yaml:"index_path"`
}

// EmbeddingConfig selects and configures the text embedder.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // onnx, openai or mock
	ModelName   string `yaml:"model_name"`
	ModelPath   string `yaml:"model_path"`
	Dimensions  int    `yaml:"dimensions"`
	MaxTokens   int    `yaml:"max_tokens"`
	CacheSize   int    `yaml:"cache_size"`
	BatchSize   int    `yaml:"batch_size"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	IndexType string `yaml:"index_type"` // memory or faiss
}

// ChunkingConfig holds splitter settings, measured in characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig holds query-time retrieval settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// CorpusConfig lists the sources collected into the index.
type CorpusConfig struct {
	URLs        []string `yaml:"urls"`
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

// RecursiveOrDefault returns whether to walk directories recursively; defaults to true when unset.
func (c *CorpusConfig) RecursiveOrDefault() bool {
	if c.Recursive != nil {
		return *c.Recursive
	}
	return true
}

// LLMConfig configures the hosted language model.
type LLMConfig struct {
	Provider       string  `yaml:"provider"` // replicate or openai
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Temperature    float64 `yaml:"temperature"`
	TopP           float64 `yaml:"top_p"`
	MaxNewTokens   int     `yaml:"max_new_tokens"`
	TimeoutSecs    int     `yaml:"timeout_secs"`
	PollIntervalMS int     `yaml:"poll_interval_ms"`
}

// VoiceConfig configures the text-to-speech service.
type VoiceConfig struct {
	Enabled       *bool  `yaml:"enabled"`
	BaseURL       string `yaml:"base_url"`
	Voice         string `yaml:"voice"` // voice name or id
	Model         string `yaml:"model"`
	OutputFormat  string `yaml:"output_format"`
	APIKeyEnv     string `yaml:"api_key_env"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
	FailurePolicy string `yaml:"failure_policy"` // degrade or surface
}

// EnabledOrDefault returns whether speech is rendered; defaults to true when unset.
func (v *VoiceConfig) EnabledOrDefault() bool {
	if v.Enabled != nil {
		return *v.Enabled
	}
	return true
}

// PersonaConfig holds the identity the assistant answers about.
type PersonaConfig struct {
	Name           string `yaml:"name"`
	Subject        string `yaml:"subject"` // what questions are about, used in the prompt
	PageTitle      string `yaml:"page_title"`
	Title          string `yaml:"title"`
	Subtitle       string `yaml:"subtitle"`
	AskLabel       string `yaml:"ask_label"`
	Placeholder    string `yaml:"placeholder"`
	Footer         string `yaml:"footer"`
	PromptTemplate string `yaml:"prompt_template"`
}

// AuthConfig configures the optional login gate. The password itself is read
// from the environment variable named by PasswordEnv.
type AuthConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read, parsed, or fails validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Corpus.Directories {
		cfg.Corpus.Directories[i] = expandPath(cfg.Corpus.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration values that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	if c.Chunking.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize))
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		errs = append(errs, fmt.Errorf("chunking.chunk_overlap must be in [0, chunk_size), got %d", c.Chunking.ChunkOverlap))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	switch c.Embedding.Provider {
	case "onnx", "openai", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q (supported: onnx, openai, mock)", c.Embedding.Provider))
	}
	switch c.Vector.IndexType {
	case "memory", "faiss":
	default:
		errs = append(errs, fmt.Errorf("unknown vector.index_type %q (supported: memory, faiss)", c.Vector.IndexType))
	}
	switch c.LLM.Provider {
	case "replicate", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q (supported: replicate, openai)", c.LLM.Provider))
	}
	switch c.Voice.FailurePolicy {
	case VoicePolicyDegrade, VoicePolicySurface:
	default:
		errs = append(errs, fmt.Errorf("unknown voice.failure_policy %q (supported: degrade, surface)", c.Voice.FailurePolicy))
	}
	if c.Auth.Enabled && c.Auth.Username == "" {
		errs = append(errs, errors.New("auth.username is required when auth is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
