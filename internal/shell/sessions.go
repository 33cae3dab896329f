package shell

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SessionStore keeps sessions in memory, keyed by a random id.
type SessionStore struct {
	shell *Shell

	mu       sync.Mutex
	sessions map[string]Session
}

// NewSessionStore returns an empty store whose sessions are driven by sh.
func NewSessionStore(sh *Shell) *SessionStore {
	return &SessionStore{shell: sh, sessions: make(map[string]Session)}
}

// Create starts a new session.
func (st *SessionStore) Create() Session {
	sess := st.shell.NewSession(uuid.NewString())
	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get returns the session with id.
func (st *SessionStore) Get(id string) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// Len returns the number of sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Login applies Shell.Login to the stored session.
func (st *SessionStore) Login(id, username, password string) (Session, error) {
	return st.update(id, func(sess Session) (Session, error) {
		return st.shell.Login(sess, username, password)
	})
}

// Logout applies Shell.Logout to the stored session.
func (st *SessionStore) Logout(id string) (Session, error) {
	return st.update(id, func(sess Session) (Session, error) {
		return st.shell.Logout(sess), nil
	})
}

// Submit answers query for the session. The session is stored as Processing
// while the pipeline runs, so a concurrent Submit gets ErrBusy.
func (st *SessionStore) Submit(ctx context.Context, id, query string, progress ProgressFunc) (Session, error) {
	sess, err := st.update(id, func(sess Session) (Session, error) {
		return st.shell.Begin(sess, query)
	})
	if err != nil {
		return sess, err
	}
	done := st.shell.Complete(ctx, sess, progress)

	st.mu.Lock()
	defer st.mu.Unlock()
	stored, ok := st.sessions[id]
	if !ok {
		return done, nil
	}
	if stored.State != Processing || stored.authEpoch != sess.authEpoch {
		// logged in or out while running: the result belongs to nobody
		if stored.State == Processing {
			stored.State = AwaitingInput
			stored.Query = ""
			st.sessions[id] = stored
		}
		return stored, nil
	}
	stored.State = done.State
	stored.Query = done.Query
	stored.Answer = done.Answer
	stored.Audio = done.Audio
	stored.Error = done.Error
	st.sessions[id] = stored
	return stored, nil
}

// Delete removes the session.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *SessionStore) update(id string, fn func(Session) (Session, error)) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	next, err := fn(sess)
	if err != nil {
		return sess, err
	}
	st.sessions[id] = next
	return next, nil
}
