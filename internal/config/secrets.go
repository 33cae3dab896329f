package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Secrets holds credential values resolved at startup. Values never appear in
// the YAML config; the config only names the environment variables.
type Secrets struct {
	LLMAPIKey       string
	VoiceAPIKey     string
	EmbeddingAPIKey string
	AuthPassword    string
}

// LoadEnvFiles loads KEY=VALUE pairs from the given .env files into the process
// environment. Missing files are skipped; variables already set are not overridden.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat env file: %w", err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// DefaultEnvFiles returns the .env locations consulted for a config file:
// next to the config, then the current directory.
func DefaultEnvFiles(configPath string) []string {
	files := []string{filepath.Join(filepath.Dir(configPath), ".env")}
	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, ".env")
		if local != files[0] {
			files = append(files, local)
		}
	}
	return files
}

// ResolveSecrets reads every secret named by cfg from the environment.
// lookup defaults to os.Getenv.
func ResolveSecrets(cfg *Config, lookup func(string) string) Secrets {
	if lookup == nil {
		lookup = os.Getenv
	}
	get := func(name string) string {
		if name == "" {
			return ""
		}
		return lookup(name)
	}
	return Secrets{
		LLMAPIKey:       get(cfg.LLM.APIKeyEnv),
		VoiceAPIKey:     get(cfg.Voice.APIKeyEnv),
		EmbeddingAPIKey: get(cfg.Embedding.APIKeyEnv),
		AuthPassword:    get(cfg.Auth.PasswordEnv),
	}
}

// String redacts all values so Secrets is safe to pass to a logger by accident.
func (s Secrets) String() string {
	return fmt.Sprintf("Secrets{llm:%s voice:%s embedding:%s auth:%s}",
		redact(s.LLMAPIKey), redact(s.VoiceAPIKey), redact(s.EmbeddingAPIKey), redact(s.AuthPassword))
}

func redact(v string) string {
	if v == "" {
		return "unset"
	}
	return "set"
}
