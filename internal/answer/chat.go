package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/kotae/pkg/utils"
)

// DefaultChatBaseURL is used when ChatConfig.BaseURL is empty.
const DefaultChatBaseURL = "https://api.openai.com/v1"

// ChatConfig configures a ChatGenerator for any OpenAI-compatible
// /chat/completions endpoint.
type ChatConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ChatGenerator sends the prompt as a single user message.
type ChatGenerator struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewChatGenerator validates cfg and returns a generator.
func NewChatGenerator(cfg ChatConfig) (*ChatGenerator, error) {
	if cfg.Model == "" {
		return nil, errors.New("chat: model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultChatBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		if cfg.Timeout == 0 {
			cfg.Timeout = DefaultReplicateTimeout
		}
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &ChatGenerator{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Model returns the configured model name.
func (g *ChatGenerator) Model() string {
	return g.model
}

// Generate returns the first choice of a chat completion.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string, params DecodingParams) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   params.MaxNewTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("chat error (status %d): %s", resp.StatusCode, utils.Truncate(string(raw), 200))
		}
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("chat error: %s", out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat error (status %d)", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat: no choices returned")
	}
	return out.Choices[0].Message.Content, nil
}
