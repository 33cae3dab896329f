package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/shell"
	"github.com/hyperjump/kotae/internal/storage"
)

// pageData is what the page template renders.
type pageData struct {
	Persona       config.PersonaConfig
	Session       shell.Session
	LoginRequired bool
	LoginError    string
	Notice        string
}

func (d pageData) LoggedIn() bool { return d.Session.Auth == shell.LoggedIn }

func (d pageData) ShowResult() bool {
	return d.Session.State == shell.ShowingResult && d.Session.Answer != nil
}

func (d pageData) ShowError() bool { return d.Session.State == shell.ShowingError }

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.currentSession(r)
	s.render(w, http.StatusOK, pageData{Session: sess})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	next, err := s.sessions.Login(sess.ID, r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		s.render(w, http.StatusUnauthorized, pageData{Session: next, LoginError: "Invalid username or password."})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if _, err := s.sessions.Logout(sess.ID); err != nil {
		s.logger.Warn("logout failed", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	question := r.PostFormValue("question")
	s.logger.Debug("ask request", zap.String("session", sess.ID), zap.String("question", question))

	next, err := s.sessions.Submit(r.Context(), sess.ID, question, nil)
	switch {
	case errors.Is(err, shell.ErrLoginRequired):
		s.render(w, http.StatusUnauthorized, pageData{Session: next})
	case errors.Is(err, shell.ErrBusy):
		s.render(w, http.StatusConflict, pageData{Session: next, Notice: "Still working on your previous question."})
	case errors.Is(err, shell.ErrEmptyQuery):
		s.render(w, http.StatusOK, pageData{Session: next, Notice: "Please enter a question."})
	case err != nil:
		s.logger.Error("ask failed", zap.Error(err))
		s.render(w, http.StatusInternalServerError, pageData{Session: next})
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

type askRequest struct {
	Question string `json:"question"`
}

type sourceJSON struct {
	Source   string  `json:"source"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}

type audioJSON struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type askResponse struct {
	State   string       `json:"state"`
	Answer  string       `json:"answer,omitempty"`
	Sources []sourceJSON `json:"sources,omitempty"`
	Audio   *audioJSON   `json:"audio,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// handleAPIAsk answers one question in a fresh session. When the login gate is
// enabled the credentials come from HTTP Basic auth.
func (s *Server) handleAPIAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := s.shell.NewSession(uuid.NewString())
	if s.shell.LoginRequired() {
		user, pass, _ := r.BasicAuth()
		var err error
		if sess, err = s.shell.Login(sess, user, pass); err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="kotae"`)
			s.respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
	}

	sess, err := s.shell.Submit(r.Context(), sess, req.Question, nil)
	if errors.Is(err, shell.ErrEmptyQuery) {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := askResponse{State: sess.State.String(), Error: sess.Error}
	if sess.Answer != nil {
		resp.Answer = sess.Answer.Text
		for _, c := range sess.Answer.Sources {
			if c.Chunk == nil {
				continue
			}
			resp.Sources = append(resp.Sources, sourceJSON{Source: c.Chunk.Source, Content: c.Chunk.Content, Distance: c.Distance})
		}
	}
	if sess.Audio != nil {
		resp.Audio = &audioJSON{MIMEType: sess.Audio.MIMEType, Data: base64.StdEncoding.EncodeToString(sess.Audio.Data)}
	}
	status := http.StatusOK
	if sess.State == shell.ShowingError {
		status = http.StatusBadGateway
	}
	s.respondJSON(w, status, resp)
}

type statusResponse struct {
	Chunks         int              `json:"chunks"`
	IndexPath      string           `json:"index_path"`
	DiskUsageBytes int64            `json:"disk_usage_bytes"`
	Manifest       *models.Manifest `json:"manifest,omitempty"`
	LoginRequired  bool             `json:"login_required"`
	Time           time.Time        `json:"time"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		IndexPath:     s.cfg.Storage.IndexPath,
		LoginRequired: s.shell.LoginRequired(),
		Time:          time.Now().UTC(),
	}
	if s.index != nil {
		resp.Chunks = s.index.Size()
		resp.Manifest = s.index.Manifest()
	}
	diskBytes, err := storage.DiskUsageBytes(s.cfg.Storage.IndexPath)
	if err != nil {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	}
	resp.DiskUsageBytes = diskBytes
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// currentSession returns the caller's stored session, or a fresh unstored one
// when the cookie is missing or unknown.
func (s *Server) currentSession(r *http.Request) (shell.Session, bool) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			return sess, true
		}
	}
	return s.shell.NewSession(""), false
}

// session returns the caller's stored session, starting one when the cookie
// is missing or unknown. Only form posts store sessions.
func (s *Server) session(w http.ResponseWriter, r *http.Request) shell.Session {
	if sess, ok := s.currentSession(r); ok {
		return sess
	}
	sess := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	data.Persona = s.cfg.Persona
	data.LoginRequired = s.shell.LoginRequired()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("render page failed", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// audioSrc returns a data URI for a.
func audioSrc(a *models.Audio) template.URL {
	if a == nil {
		return ""
	}
	return template.URL("data:" + a.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(a.Data))
}
