package shell

import (
	"context"
	"crypto/subtle"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrorPrefix starts every message in the error banner.
const ErrorPrefix = "An error occurred: "

// Shell applies the transitions of the presentation state machine.
type Shell struct {
	pipeline    *Pipeline
	voicePolicy string
	gate        *loginGate
	logger      *zap.Logger
}

type loginGate struct {
	username string
	password string
}

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Shell) { s.logger = l }
}

// WithVoicePolicy sets how speech failures are handled: config.VoicePolicyDegrade
// shows the text answer without audio, config.VoicePolicySurface shows the error.
func WithVoicePolicy(policy string) Option {
	return func(s *Shell) { s.voicePolicy = policy }
}

// WithLoginGate requires a login with exactly username and password before
// questions are accepted.
func WithLoginGate(username, password string) Option {
	return func(s *Shell) { s.gate = &loginGate{username: username, password: password} }
}

// New returns a Shell running p.
func New(p *Pipeline, opts ...Option) *Shell {
	s := &Shell{pipeline: p, voicePolicy: config.VoicePolicyDegrade}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// LoginRequired reports whether sessions start logged out.
func (s *Shell) LoginRequired() bool {
	return s.gate != nil
}

// NewSession returns the initial state for a session with the given id.
func (s *Shell) NewSession(id string) Session {
	sess := Session{ID: id, State: AwaitingInput}
	if s.gate == nil {
		sess.Auth = LoggedIn
	}
	return sess
}

// Login checks the credentials and moves the session to LoggedIn.
func (s *Shell) Login(sess Session, username, password string) (Session, error) {
	if s.gate == nil {
		sess.Auth = LoggedIn
		return sess, nil
	}
	if !s.gate.matches(username, password) {
		s.logger.Info("login rejected", zap.String("session", sess.ID))
		return sess, ErrInvalidCredentials
	}
	sess.Auth = LoggedIn
	sess.authEpoch++
	if sess.State != Processing {
		sess.State = AwaitingInput
	}
	return sess.clearResult(), nil
}

// Logout moves the session to LoggedOut and forgets the last result. A query
// still running stays Processing; its result is discarded when it finishes.
func (s *Shell) Logout(sess Session) Session {
	if s.gate != nil {
		sess.Auth = LoggedOut
		sess.authEpoch++
	}
	if sess.State != Processing {
		sess.State = AwaitingInput
		sess.Query = ""
	}
	return sess.clearResult()
}

// Begin validates a submission and moves the session to Processing. A session
// showing a result or an error accepts a new query.
func (s *Shell) Begin(sess Session, query string) (Session, error) {
	if s.gate != nil && sess.Auth != LoggedIn {
		return sess, ErrLoginRequired
	}
	if sess.State == Processing {
		return sess, ErrBusy
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return sess, ErrEmptyQuery
	}
	sess = sess.clearResult()
	sess.Query = query
	sess.State = Processing
	return sess, nil
}

// Complete runs the pipeline for a session in Processing and returns it in
// ShowingResult or ShowingError.
func (s *Shell) Complete(ctx context.Context, sess Session, progress ProgressFunc) Session {
	if sess.State != Processing {
		return sess
	}
	out := s.pipeline.Run(ctx, sess.Query, progress)
	sess.Answer = out.Answer
	sess.Audio = out.Audio

	if out.Err == nil {
		sess.State = ShowingResult
		return sess
	}
	fields := []zap.Field{zap.String("session", sess.ID), zap.String("stage", string(out.Failed)), zap.Error(out.Err)}
	if out.Failed == StageSpeak && out.Answer != nil && s.voicePolicy != config.VoicePolicySurface {
		s.logger.Warn("speech failed, showing text only", fields...)
		sess.State = ShowingResult
		return sess
	}
	s.logger.Error("query failed", fields...)
	sess.Answer, sess.Audio = nil, nil
	sess.State = ShowingError
	sess.Error = ErrorPrefix + out.Err.Error()
	return sess
}

// Submit runs Begin and Complete.
func (s *Shell) Submit(ctx context.Context, sess Session, query string, progress ProgressFunc) (Session, error) {
	sess, err := s.Begin(sess, query)
	if err != nil {
		return sess, err
	}
	return s.Complete(ctx, sess, progress), nil
}

func (g *loginGate) matches(username, password string) bool {
	if g.password == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) == 1
	return userOK && passOK
}
