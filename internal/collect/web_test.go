package collect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kotae/internal/docid"
	"github.com/hyperjump/kotae/internal/models"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/", page(`<html><body><p>Welcome.</p><p>Jack Hoang is a software engineer.</p></body></html>`))
	mux.HandleFunc("/about", page(`<p>About <a href="/">me</a></p>`))
	mux.HandleFunc("/treatment-focus", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/faqs", page(`<div>No paragraphs here</div>`))
	mux.HandleFunc("/contact", page(`<p>Email me.</p>`))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestWebCollector_Collect(t *testing.T) {
	srv := newSite(t)
	c := NewWebCollector(5 * time.Second)

	docs, errs := c.Collect(context.Background(), []string{srv.URL + "/", srv.URL + "/about"})
	require.Empty(t, errs)
	require.Len(t, docs, 2)

	assert.Equal(t, "Welcome.\n\nJack Hoang is a software engineer.", docs[0].Content)
	assert.Equal(t, srv.URL+"/", docs[0].Source)
	assert.Equal(t, docid.ForURL(srv.URL+"/"), docs[0].ID)
	assert.Equal(t, "web", docs[0].Metadata[models.MetaKind])
	assert.Equal(t, "About me", docs[1].Content)
}

func TestWebCollector_ContinuesPastFailures(t *testing.T) {
	srv := newSite(t)
	c := NewWebCollector(5 * time.Second)
	urls := []string{
		srv.URL + "/",
		srv.URL + "/about",
		srv.URL + "/treatment-focus",
		srv.URL + "/faqs",
		srv.URL + "/contact",
	}

	docs, errs := c.Collect(context.Background(), urls)
	require.Len(t, docs, 4)
	require.Len(t, errs, 1)

	var ce *CollectionError
	require.True(t, errors.As(errs[0], &ce))
	assert.Equal(t, srv.URL+"/treatment-focus", ce.Source)
	assert.Equal(t, http.StatusInternalServerError, ce.StatusCode)
	assert.Contains(t, ce.Error(), "status code 500")

	// A page with no <p> elements still yields a document with empty content.
	assert.Equal(t, srv.URL+"/faqs", docs[2].Source)
	assert.Empty(t, docs[2].Content)
	assert.Equal(t, srv.URL+"/contact", docs[3].Source)
}

func TestWebCollector_TransportError(t *testing.T) {
	srv := newSite(t)
	base := srv.URL
	srv.Close()

	docs, errs := NewWebCollector(time.Second).Collect(context.Background(), []string{base + "/"})
	assert.Empty(t, docs)
	require.Len(t, errs, 1)
	var ce *CollectionError
	require.ErrorAs(t, errs[0], &ce)
	assert.Zero(t, ce.StatusCode)
	assert.Error(t, ce.Unwrap())
}

func TestWebCollector_CanceledContext(t *testing.T) {
	srv := newSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs, errs := NewWebCollector(time.Second).Collect(ctx, []string{srv.URL + "/", srv.URL + "/about"})
	assert.Empty(t, docs)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestWebCollector_SendsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		fmt.Fprint(w, "<p>x</p>")
	}))
	defer srv.Close()

	_, errs := NewWebCollector(time.Second, WithUserAgent("test-agent")).Collect(context.Background(), []string{srv.URL})
	require.Empty(t, errs)
	assert.Equal(t, "test-agent", got)
}
