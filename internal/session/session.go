// Package session provides per-(app, user, session) conversation state.
package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Session is the mutable state container for one conversation. State is
// mutated only by step events applied through the orchestration runtime;
// per-key updates are latest-wins.
type Session struct {
	App       string    `json:"app_name"`
	UserID    string    `json:"user_id"`
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`

	mu    sync.RWMutex
	state map[string]interface{}
}

// NewSession creates a session with the given initial state.
func NewSession(app, userID, id string, state map[string]interface{}) *Session {
	s := &Session{App: app, UserID: userID, ID: id, CreatedAt: time.Now(), state: map[string]interface{}{}}
	for k, v := range state {
		s.state[k] = v
	}
	return s
}

// Value returns the state value for key.
func (s *Session) Value(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state[key]
	return v, ok
}

// State returns a snapshot copy of the state map.
func (s *Session) State() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]interface{}, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

// Apply merges a state delta, overwriting existing keys.
func (s *Session) Apply(delta map[string]interface{}) {
	if len(delta) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range delta {
		s.state[k] = v
	}
}

// Store resolves and creates sessions. Get returns (nil, nil) when the
// session does not exist; Create is idempotent for the same key.
type Store interface {
	Get(ctx context.Context, app, userID, id string) (*Session, error)
	Create(ctx context.Context, app, userID, id string, state map[string]interface{}) (*Session, error)
	ApplyState(ctx context.Context, app, userID, id string, delta map[string]interface{}) error
	Close() error
}

func storeKey(app, userID, id string) string {
	return strings.Join([]string{app, userID, id}, "\x1f")
}
