// Package registry tracks which users currently hold an active connection on
// this process. It is the single in-memory source of truth for local
// dispatch; durable presence lives in the users table.
package registry

import "sync"

// Session is the handle the registry keeps per connected user. The concrete
// type lives in the ws package; everything above the transport depends on
// this interface only.
type Session interface {
	UserID() string
	Send(event string, data any) error
}

// Registry maps user ids to their active session. At most one session per
// user; a reconnect overwrites the previous entry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Register stores sess as the active session for userID, replacing any
// previous one.
func (r *Registry) Register(userID string, sess Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = sess
}

// Lookup returns the active session for userID, if any.
func (r *Registry) Lookup(userID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[userID]
	return sess, ok
}

// Unregister removes the entry for userID only when sess is still the
// registered session. A disconnect that raced with a reconnect must not
// evict the newer connection's entry.
func (r *Registry) Unregister(userID string, sess Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[userID]
	if !ok || current != sess {
		return false
	}
	delete(r.sessions, userID)
	return true
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
