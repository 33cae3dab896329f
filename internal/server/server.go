// Package server provides the web page and HTTP API for the kotae assistant.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/shell"
	"github.com/hyperjump/kotae/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// sessionCookie names the cookie that carries the session id.
const sessionCookie = "kotae_session"

// IndexInfo describes the index being served.
type IndexInfo interface {
	Manifest() *models.Manifest
	Size() int
}

// Server is the HTTP server for the assistant.
type Server struct {
	shell    *shell.Shell
	sessions *shell.SessionStore
	index    IndexInfo
	cfg      *config.Config
	page     *template.Template
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server answering through sh.
func NewServer(sh *shell.Shell, index IndexInfo, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	page, err := template.New("page.html").Funcs(template.FuncMap{
		"audioSrc": audioSrc,
	}).ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Server{
		shell:    sh,
		sessions: shell.NewSessionStore(sh),
		index:    index,
		cfg:      cfg,
		page:     page,
		logger:   utils.OrNop(logger),
	}, nil
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if timeout := s.cfg.Server.RequestTimeout(); timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}
	r.Use(middleware.Compress(5))

	r.Get("/", s.handlePage)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Post("/ask", s.handleAsk)

	r.Post("/api/v1/ask", s.handleAPIAsk)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
