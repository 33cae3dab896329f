package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/shell"
	"github.com/hyperjump/kotae/internal/voice"
)

type fixedSearcher struct {
	chunks []models.RetrievedChunk
	err    error
}

func (f fixedSearcher) Search(_ context.Context, _ string, k int) ([]models.RetrievedChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.chunks) {
		return f.chunks[:k], nil
	}
	return f.chunks, nil
}

func (f fixedSearcher) Manifest() *models.Manifest {
	return &models.Manifest{FormatVersion: 1, EmbeddingModel: "mock-16", Dimensions: 16, Chunks: len(f.chunks)}
}

func (f fixedSearcher) Size() int { return len(f.chunks) }

var jackChunk = models.RetrievedChunk{
	Chunk: &models.Chunk{ID: "web:home_0", Source: "https://example.com/", Content: "Jack Hoang is a software engineer."},
}

type testEnv struct {
	srv      *Server
	handler  http.Handler
	gen      *answer.StaticGenerator
	renderer *voice.StaticRenderer
}

func newTestEnv(t *testing.T, searcher fixedSearcher, opts ...shell.Option) *testEnv {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.IndexPath = t.TempDir()

	gen := answer.NewStaticGenerator("Jack Hoang works as a software engineer.")
	prompt, err := answer.NewPromptTemplate("", cfg.Persona.Subject)
	if err != nil {
		t.Fatal(err)
	}
	synth := answer.NewSynthesizer(gen, prompt, answer.ParamsFromConfig(cfg.LLM))
	renderer := &voice.StaticRenderer{Audio: &models.Audio{Data: []byte("ID3"), MIMEType: "audio/mpeg"}}
	sh := shell.New(shell.NewPipeline(searcher, synth, renderer, 1), opts...)

	srv, err := NewServer(sh, searcher, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{srv: srv, handler: srv.Handler(), gen: gen, renderer: renderer}
}

func (e *testEnv) do(t *testing.T, method, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	r := httptest.NewRequest(method, path, body)
	if form != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func TestPage_askFlow(t *testing.T) {
	env := newTestEnv(t, fixedSearcher{chunks: []models.RetrievedChunk{jackChunk}})

	w := env.do(t, http.MethodGet, "/", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /: status %d", w.Code)
	}
	page := w.Body.String()
	for _, want := range []string{"Jack Hoang AI Assistant", "Ask anything about Jack Hoang:", "Powered by Jack Hoang", `name="question"`} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("GET / should not start a session")
	}

	w = env.do(t, http.MethodPost, "/ask", url.Values{"question": {"What does Jack do?"}}, nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("POST /ask: status %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != sessionCookie {
		t.Fatalf("expected session cookie, got %v", cookies)
	}

	w = env.do(t, http.MethodGet, "/", nil, cookies)
	page = w.Body.String()
	if !strings.Contains(page, "Jack Hoang works as a software engineer.") {
		t.Error("page does not show the answer")
	}
	wantSrc := "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString([]byte("ID3"))
	if !strings.Contains(page, `src="`+wantSrc+`"`) {
		t.Errorf("page does not embed the audio as %s", wantSrc)
	}
	if !strings.Contains(page, "https://example.com/") {
		t.Error("page does not list the source")
	}
	if strings.Contains(page, `role="alert"`) {
		t.Error("page shows an error banner")
	}
}

func TestPage_errorBanner(t *testing.T) {
	env := newTestEnv(t, fixedSearcher{err: errors.New("index unavailable")})
	cookies := env.do(t, http.MethodPost, "/ask", url.Values{"question": {"hi"}}, nil).Result().Cookies()
	page := env.do(t, http.MethodGet, "/", nil, cookies).Body.String()
	if !strings.Contains(page, "An error occurred: index unavailable") {
		t.Errorf("page does not show the error banner:\n%s", page)
	}
	if len(env.renderer.Texts()) != 0 {
		t.Error("speech should not run after a retrieval failure")
	}
}

func TestPage_emptyQuestion(t *testing.T) {
	env := newTestEnv(t, fixedSearcher{chunks: []models.RetrievedChunk{jackChunk}})
	w := env.do(t, http.MethodPost, "/ask", url.Values{"question": {"  "}}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Please enter a question.") {
		t.Error("expected notice for empty question")
	}
	if env.gen.Calls() != 0 {
		t.Error("generator called for an empty question")
	}
}

func TestPage_cookielessVisitsStoreNothing(t *testing.T) {
	env := newTestEnv(t, fixedSearcher{chunks: []models.RetrievedChunk{jackChunk}})
	for i := 0; i < 100; i++ {
		if w := env.do(t, http.MethodGet, "/", nil, nil); w.Code != http.StatusOK {
			t.Fatalf("GET /: status %d", w.Code)
		}
	}
	env.do(t, http.MethodPost, "/logout", nil, nil)
	if n := env.srv.sessions.Len(); n != 0 {
		t.Errorf("sessions stored = %d, want 0", n)
	}

	cookies := env.do(t, http.MethodPost, "/ask", url.Values{"question": {"What does Jack do?"}}, nil).Result().Cookies()
	env.do(t, http.MethodGet, "/", nil, cookies)
	if n := env.srv.sessions.Len(); n != 1 {
		t.Errorf("sessions stored = %d, want 1", n)
	}
}

func TestLoginGate(t *testing.T) {
	env := newTestEnv(t, fixedSearcher{chunks: []models.RetrievedChunk{jackChunk}}, shell.WithLoginGate("jack", "s3cret"))

	w := env.do(t, http.MethodGet, "/", nil, nil)
	page := w.Body.String()
	if !strings.Contains(page, `action="/login"`) || strings.Contains(page, `name="question"`) {
		t.Fatal("logged out page should only show the login form")
	}

	w = env.do(t, http.MethodPost, "/ask", url.Values{"question": {"What does Jack do?"}}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("ask while logged out: status %d", w.Code)
	}
	cookies := w.Result().Cookies()

	w = env.do(t, http.MethodPost, "/login", url.Values{"username": {"jack"}, "password": {"nope"}}, cookies)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "Invalid username or password.") {
		t.Errorf("bad login: status %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/login", url.Values{"username": {"jack"}, "password": {"s3cret"}}, cookies)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("login: status %d", w.Code)
	}
	page = env.do(t, http.MethodGet, "/", nil, cookies).Body.String()
	if !strings.Contains(page, `name="question"`) || !strings.Contains(page, `action="/logout"`) {
		t.Error("logged in page should show the question form and logout")
	}

	env.do(t, http.MethodPost, "/logout", nil, cookies)
	page = env.do(t, http.MethodGet, "/", nil, cookies).Body.String()
	if !strings.Contains(page, `action="/login"`) {
		t.Error("logout should return to the login form")
	}
}

func postJSON(env *testEnv, path string, body interface{}, user, pass string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	if user != "" {
		r.SetBasicAuth(user, pass)
	}
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	return w
}

func TestAPIAsk(t *testing.T) {
	env := newTestEnv(t, fixedSearcher{chunks: []models.RetrievedChunk{jackChunk}})
	w := postJSON(env, "/api/v1/ask", askRequest{Question: "What does Jack do?"}, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp askResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.State != "showing_result" || !strings.Contains(resp.Answer, "software engineer") {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Source != "https://example.com/" {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if resp.Audio == nil || resp.Audio.MIMEType != "audio/mpeg" {
		t.Errorf("audio = %+v", resp.Audio)
	}
}

func TestAPIAsk_errors(t *testing.T) {
	env := newTestEnv(t, fixedSearcher{err: errors.New("boom")})

	w := postJSON(env, "/api/v1/ask", askRequest{Question: "hi"}, "", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("stage failure: status %d", w.Code)
	}
	var resp askResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error != "An error occurred: boom" {
		t.Errorf("error = %q", resp.Error)
	}

	if w := postJSON(env, "/api/v1/ask", askRequest{}, "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("empty question: status %d", w.Code)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: status %d", rec.Code)
	}
}

func TestAPIAsk_basicAuth(t *testing.T) {
	env := newTestEnv(t, fixedSearcher{chunks: []models.RetrievedChunk{jackChunk}}, shell.WithLoginGate("jack", "s3cret"))

	w := postJSON(env, "/api/v1/ask", askRequest{Question: "hi"}, "", "")
	if w.Code != http.StatusUnauthorized || w.Header().Get("WWW-Authenticate") == "" {
		t.Errorf("missing credentials: status %d", w.Code)
	}
	if w := postJSON(env, "/api/v1/ask", askRequest{Question: "hi"}, "jack", "s3cret"); w.Code != http.StatusOK {
		t.Errorf("with credentials: status %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t, fixedSearcher{chunks: []models.RetrievedChunk{jackChunk}})
	w := env.do(t, http.MethodGet, "/api/v1/status", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp statusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Chunks != 1 || resp.Manifest == nil || resp.Manifest.EmbeddingModel != "mock-16" {
		t.Errorf("unexpected status %+v", resp)
	}
	if resp.Time.IsZero() || time.Since(resp.Time) > time.Minute {
		t.Errorf("time = %v", resp.Time)
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, fixedSearcher{})
	w := env.do(t, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}
}
