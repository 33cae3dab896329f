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

// Replicate defaults.
const (
	DefaultReplicateBaseURL = "https://api.replicate.com"
	DefaultReplicateModel   = "meta/meta-llama-3-70b-instruct"
	DefaultReplicateTimeout = 120 * time.Second
	defaultPollInterval     = 500 * time.Millisecond
)

// ReplicateConfig configures a ReplicateGenerator. Model is "owner/name" for
// an official model or "owner/name:version" for a pinned version.
type ReplicateConfig struct {
	BaseURL      string
	APIToken     string
	Model        string
	Timeout      time.Duration
	PollInterval time.Duration
	HTTPClient   *http.Client
}

// ReplicateGenerator runs predictions on Replicate.
type ReplicateGenerator struct {
	client       *http.Client
	baseURL      string
	token        string
	model        string
	pollInterval time.Duration
}

type replicateInput struct {
	Prompt       string  `json:"prompt"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	MaxNewTokens int     `json:"max_new_tokens"`
}

type replicateRequest struct {
	Version string         `json:"version,omitempty"`
	Input   replicateInput `json:"input"`
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
	Detail string          `json:"detail"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// NewReplicateGenerator validates cfg and returns a generator.
func NewReplicateGenerator(cfg ReplicateConfig) (*ReplicateGenerator, error) {
	if cfg.APIToken == "" {
		return nil, errors.New("replicate: API token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultReplicateBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultReplicateModel
	}
	if !strings.Contains(strings.SplitN(cfg.Model, ":", 2)[0], "/") {
		return nil, fmt.Errorf("replicate: model %q must be owner/name", cfg.Model)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	client := cfg.HTTPClient
	if client == nil {
		if cfg.Timeout == 0 {
			cfg.Timeout = DefaultReplicateTimeout
		}
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &ReplicateGenerator{
		client:       client,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.APIToken,
		model:        cfg.Model,
		pollInterval: cfg.PollInterval,
	}, nil
}

// Model returns the configured model reference.
func (g *ReplicateGenerator) Model() string {
	return g.model
}

// Generate creates a prediction and waits for it to finish.
func (g *ReplicateGenerator) Generate(ctx context.Context, prompt string, params DecodingParams) (string, error) {
	reqBody := replicateRequest{Input: replicateInput{
		Prompt:       prompt,
		Temperature:  params.Temperature,
		TopP:         params.TopP,
		MaxNewTokens: params.MaxNewTokens,
	}}
	endpoint := g.baseURL + "/v1/models/" + g.model + "/predictions"
	if name, version, ok := strings.Cut(g.model, ":"); ok && name != "" {
		endpoint = g.baseURL + "/v1/predictions"
		reqBody.Version = version
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	pred, err := g.do(req)
	if err != nil {
		return "", err
	}
	for !terminal(pred.Status) {
		if pred.URLs.Get == "" {
			return "", fmt.Errorf("replicate: prediction %s is %s and has no poll URL", pred.ID, pred.Status)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(g.pollInterval):
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pred.URLs.Get, nil)
		if err != nil {
			return "", fmt.Errorf("create poll request: %w", err)
		}
		if pred, err = g.do(req); err != nil {
			return "", err
		}
	}

	if pred.Status != "succeeded" {
		msg := rawString(pred.Error)
		if msg == "" {
			msg = pred.Status
		}
		return "", fmt.Errorf("replicate: prediction %s %s: %s", pred.ID, pred.Status, msg)
	}
	return joinOutput(pred.Output)
}

func (g *ReplicateGenerator) do(req *http.Request) (*replicatePrediction, error) {
	req.Header.Set("Authorization", "Bearer "+g.token)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var pred replicatePrediction
	jsonErr := json.Unmarshal(raw, &pred)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := pred.Detail
		if jsonErr != nil || msg == "" {
			msg = utils.Truncate(strings.TrimSpace(string(raw)), 200)
		}
		return nil, fmt.Errorf("replicate error (status %d): %s", resp.StatusCode, msg)
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("decode response: %w", jsonErr)
	}
	return &pred, nil
}

func terminal(status string) bool {
	switch status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// joinOutput concatenates streamed tokens; language models return a list of
// strings while some return a single string.
func joinOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, ""), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return "", fmt.Errorf("replicate: unexpected output %s", utils.Truncate(string(raw), 100))
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
