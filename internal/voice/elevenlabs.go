package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// ElevenLabs defaults.
const (
	DefaultBaseURL      = "https://api.elevenlabs.io"
	DefaultModel        = "eleven_multilingual_v2"
	DefaultOutputFormat = "mp3_44100_128"
	DefaultTimeout      = 60 * time.Second
)

// ElevenLabsConfig configures an ElevenLabs renderer. Voice may be a voice name
// from the account's library or a voice id.
type ElevenLabsConfig struct {
	BaseURL      string
	APIKey       string
	Voice        string
	Model        string
	OutputFormat string
	Timeout      time.Duration
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// ElevenLabs synthesizes speech with the ElevenLabs streaming endpoint.
type ElevenLabs struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	voice        string
	model        string
	outputFormat string
	logger       *zap.Logger

	mu      sync.Mutex
	voiceID string
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

type voicesResponse struct {
	Voices []struct {
		VoiceID string `json:"voice_id"`
		Name    string `json:"name"`
	} `json:"voices"`
}

// NewElevenLabs validates cfg and returns a renderer.
func NewElevenLabs(cfg ElevenLabsConfig) (*ElevenLabs, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("elevenlabs: API key is required")
	}
	if strings.TrimSpace(cfg.Voice) == "" {
		return nil, errors.New("elevenlabs: voice is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = DefaultOutputFormat
	}
	client := cfg.HTTPClient
	if client == nil {
		if cfg.Timeout == 0 {
			cfg.Timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &ElevenLabs{
		client:       client,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		voice:        cfg.Voice,
		model:        cfg.Model,
		outputFormat: cfg.OutputFormat,
		logger:       utils.OrNop(cfg.Logger),
	}, nil
}

// Synthesize speaks text and returns the whole audio stream. Every failure is a *RenderError.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*models.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &RenderError{Err: ErrEmptyText}
	}
	voiceID, err := e.resolveVoice(ctx)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	body, err := json.Marshal(ttsRequest{Text: text, ModelID: e.model})
	if err != nil {
		return nil, &RenderError{Err: fmt.Errorf("marshal request: %w", err)}
	}
	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID) +
		"/stream?output_format=" + url.QueryEscape(e.outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &RenderError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")

	resp, err := e.do(req)
	if err != nil {
		return nil, &RenderError{Err: err}
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, &RenderError{Err: fmt.Errorf("read audio stream: %w", err)}
	}
	if buf.Len() == 0 {
		return nil, &RenderError{Err: errors.New("elevenlabs: empty audio stream")}
	}
	e.logger.Debug("speech synthesized",
		zap.String("voice_id", voiceID),
		zap.Int("text_len", len(text)),
		zap.Int("bytes", buf.Len()))
	return &models.Audio{Data: buf.Bytes(), MIMEType: models.MIMETypeForFormat(e.outputFormat)}, nil
}

// resolveVoice maps the configured voice name to an id once. A voice that
// matches no name in the library is used as an id.
func (e *ElevenLabs) resolveVoice(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.voiceID != "" {
		return e.voiceID, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/voices", nil)
	if err != nil {
		return "", fmt.Errorf("create voices request: %w", err)
	}
	resp, err := e.do(req)
	if err != nil {
		return "", fmt.Errorf("list voices: %w", err)
	}
	defer resp.Body.Close()

	var out voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode voices: %w", err)
	}
	e.voiceID = e.voice
	for _, v := range out.Voices {
		if strings.EqualFold(v.Name, e.voice) {
			e.voiceID = v.VoiceID
			break
		}
	}
	e.logger.Debug("resolved voice", zap.String("voice", e.voice), zap.String("voice_id", e.voiceID))
	return e.voiceID, nil
}

// do sends req and returns the response when the status is 2xx.
func (e *ElevenLabs) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("xi-api-key", e.apiKey)
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return nil, fmt.Errorf("elevenlabs error (status %d): %s", resp.StatusCode, errorDetail(raw))
}

// errorDetail extracts the message of an error body, which is either
// {"detail":{"status":..,"message":..}} or {"detail":"..."}.
func errorDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Detail) > 0 {
		var d struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body.Detail, &d); err == nil && d.Message != "" {
			return d.Message
		}
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil && s != "" {
			return s
		}
	}
	return utils.Truncate(strings.TrimSpace(string(raw)), 200)
}
