package collect

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/docid"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

const defaultUserAgent = "kotae-collector/1.0"

// WebCollector fetches pages and keeps the text of their <p> elements.
type WebCollector struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// WebOption configures a WebCollector.
type WebOption func(*WebCollector)

// WithHTTPClient replaces the HTTP client used for fetching.
func WithHTTPClient(c *http.Client) WebOption {
	return func(w *WebCollector) { w.client = c }
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) WebOption {
	return func(w *WebCollector) { w.userAgent = ua }
}

// WithWebLogger sets a logger for per-URL progress.
func WithWebLogger(l *zap.Logger) WebOption {
	return func(w *WebCollector) { w.logger = l }
}

// NewWebCollector creates a collector whose requests time out after timeout.
func NewWebCollector(timeout time.Duration, opts ...WebOption) *WebCollector {
	w := &WebCollector{
		client:    &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = utils.OrNop(w.logger)
	return w
}

// Collect fetches each URL in order. It returns one Document per page that was
// retrieved with a 2xx status, and one *CollectionError per page that was not.
// A failed page never stops the remaining ones; only ctx cancellation does.
func (w *WebCollector) Collect(ctx context.Context, urls []string) ([]*models.Document, []error) {
	var (
		docs []*models.Document
		errs []error
	)
	for _, u := range urls {
		if ctx.Err() != nil {
			errs = append(errs, &CollectionError{Source: u, Err: ctx.Err()})
			continue
		}
		doc, err := w.fetch(ctx, u)
		if err != nil {
			w.logger.Warn("collect page failed", zap.String("url", u), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		w.logger.Debug("collected page", zap.String("url", u), zap.Int("chars", len(doc.Content)))
		docs = append(docs, doc)
	}
	return docs, errs
}

func (w *WebCollector) fetch(ctx context.Context, u string) (*models.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &CollectionError{Source: u, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", w.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, &CollectionError{Source: u, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &CollectionError{
			Source:     u,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	paragraphs, err := extract.Paragraphs(resp.Body)
	if err != nil {
		return nil, &CollectionError{Source: u, Err: err}
	}
	return &models.Document{
		ID:      docid.ForURL(u),
		Source:  u,
		Content: strings.Join(paragraphs, extract.ParagraphSeparator),
		Metadata: map[string]interface{}{
			models.MetaKind:   "web",
			models.MetaSource: u,
		},
	}, nil
}
