package session

import (
	"log"
	"sync"
)

// Registry is the concurrent sessionId → *Session map spec §4.4
// describes: many concurrent reads (lookup, broadcast fan-out), rare
// writes (create/delete), idempotent deletion, and a consistent
// snapshot for iteration. Shaped directly after the teacher's
// Manager: sync.RWMutex guarding a map, Register/Unregister/lookup,
// one log line per lifecycle event.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	// primary tracks each human user's single "primary" session, per
	// spec §4.4.
	primary map[string]string // userId -> sessionId
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		primary:  make(map[string]string),
	}
}

// Register adds s to the registry. If s is human-owned, it becomes
// that user's primary session, replacing (but not destroying) any
// prior one — callers that want single-primary semantics should
// Unregister the prior session explicitly first.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s
	if s.OwnerKind == OwnerHuman {
		r.primary[s.Owner] = s.ID
	}
	log.Printf("session %s registered (owner=%s kind=%s mode=%s)", s.ID, s.Owner, s.OwnerKind, s.Config.Mode)
}

// Unregister removes a session. Idempotent — unregistering an unknown
// id is a no-op, per spec §4.4.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	if s.OwnerKind == OwnerHuman && r.primary[s.Owner] == id {
		delete(r.primary, s.Owner)
	}
	log.Printf("session %s unregistered", id)
}

// Get returns a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// PrimaryFor returns the calling user's primary session, if any.
func (r *Registry) PrimaryFor(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.primary[userID]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[id]
	return s, ok
}

// Snapshot returns a stable slice of every active session, so the
// Clock Scheduler and broadcast fan-out never observe a torn view of
// the registry mid-iteration, per spec §4.4.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
