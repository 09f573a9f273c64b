// Package runtime owns the shared mutable state of the server: the global
// session set and the room registry. All structural mutation goes through
// these types; nothing else may add or remove sessions or rooms.
package runtime

import (
	"sync"

	"github.com/google/uuid"

	"sketchswap/domain"
)

// Registry is the global set of live sessions. Structural changes are rare
// relative to broadcast traffic, so a single RWMutex fits the contention
// pattern: fan-out reads a snapshot, insert/remove take the write lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*domain.Session),
	}
}

// Add registers a freshly accepted session.
func (r *Registry) Add(s *domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

// Remove detaches a session from the global set. After Remove returns, no
// subsequent broadcast will attempt a delivery to it.
func (r *Registry) Remove(s *domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s.ID())
}

// Snapshot returns the current live sessions. The slice is a copy; iterating
// it never races with registration.
func (r *Registry) Snapshot() []*domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*domain.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
