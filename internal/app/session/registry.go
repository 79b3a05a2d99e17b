package session

import "sync"

// Registry maps guild IDs to sessions. Entries live for the whole process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxSongs int
}

// NewRegistry creates a new registry whose sessions hold up to maxSongs tracks.
func NewRegistry(maxSongs int) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		maxSongs: maxSongs,
	}
}

// GetOrCreate returns the session for id, creating it on first reference.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock; another caller may have created it
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s = New(id, r.maxSongs)
	r.sessions[id] = s
	return s
}

// Get retrieves a session without creating it.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Count returns the number of sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
