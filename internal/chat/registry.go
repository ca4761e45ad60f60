package chat

import (
	"fmt"
	"time"
)

// Registry maps live connection ids to their sessions.
type Registry struct {
	sessions map[string]*Session
	active   int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register records a freshly connected transport in the Connected state.
func (r *Registry) Register(id string) error {
	if _, ok := r.sessions[id]; ok {
		return fmt.Errorf("register %s: %w", id, ErrAlreadyRegistered)
	}
	r.sessions[id] = &Session{ConnectionID: id, State: StateConnected}
	return nil
}

// Authenticate promotes a Connected session to Active under name and returns
// the number of active sessions afterwards. A session joins at most once.
func (r *Registry) Authenticate(id, name string, now time.Time) (int, error) {
	s, ok := r.sessions[id]
	if !ok {
		return r.active, fmt.Errorf("authenticate %s: %w", id, ErrNotRegistered)
	}
	if s.State == StateActive {
		return r.active, fmt.Errorf("authenticate %s as %q: %w", id, name, ErrAlreadyJoined)
	}

	s.DisplayName = name
	s.JoinedAt = now
	s.State = StateActive
	r.active++
	return r.active, nil
}

// Unregister removes id and returns the session as it was just before
// removal, so the caller can tell whether it had joined. The boolean is false
// when id was never registered or is already gone.
func (r *Registry) Unregister(id string) (Session, bool) {
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, id)
	if s.State == StateActive {
		r.active--
	}
	return *s, true
}

// Lookup returns a copy of the session registered under id.
func (r *Registry) Lookup(id string) (Session, bool) {
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Count is the number of active (joined) sessions. This is the online count
// shown to users.
func (r *Registry) Count() int {
	return r.active
}

// Len is the number of registered connections, joined or not.
func (r *Registry) Len() int {
	return len(r.sessions)
}
