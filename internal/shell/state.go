// Package shell holds the presentation state machine: login gate, query
// submission and the per-session result shown to the user.
package shell

import (
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// Errors returned by transitions. They leave the session unchanged.
var (
	ErrEmptyQuery         = errors.New("query is empty")
	ErrLoginRequired      = errors.New("login required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrBusy               = errors.New("a query is already being processed")
	ErrSessionNotFound    = errors.New("session not found")
)

// State is the presentation state of a session.
type State int

const (
	AwaitingInput State = iota
	Processing
	ShowingResult
	ShowingError
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case Processing:
		return "processing"
	case ShowingResult:
		return "showing_result"
	case ShowingError:
		return "showing_error"
	default:
		return "unknown"
	}
}

// AuthState is the login state of a session.
type AuthState int

const (
	LoggedOut AuthState = iota
	LoggedIn
)

func (a AuthState) String() string {
	if a == LoggedIn {
		return "logged_in"
	}
	return "logged_out"
}

// Session is the state of one user. Transitions take a Session and return
// the next one; nothing else mutates it.
type Session struct {
	ID    string
	Auth  AuthState
	State State
	Query string

	Answer *models.Answer
	Audio  *models.Audio
	// Error is the message shown in the error banner.
	Error string

	// authEpoch counts logins and logouts so a query that outlives one is dropped.
	authEpoch int
}

// clearResult drops the previous answer, audio and error.
func (s Session) clearResult() Session {
	s.Answer = nil
	s.Audio = nil
	s.Error = ""
	return s
}
