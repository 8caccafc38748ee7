package raffle

import (
	"sync"
	"time"

	"ms-engagement/internal/auth"
	"ms-engagement/internal/rejection"
)

var (
	ErrSessionNotFound = rejection.NotFound("raffle session not found")
	ErrNotSessionOwner = rejection.Unauthorized("raffle session belongs to another operator")
)

// Registry holds live sessions by id. Each session is reachable only by the
// operator that opened it.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idleTTL  time.Duration
	now      func() time.Time
}

func NewRegistry(idleTTL time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

// Get returns the session if op owns it.
func (r *Registry) Get(id string, op auth.Operator) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.OwnerID() != op.AttendeeID {
		return nil, ErrNotSessionOwner
	}
	return s, nil
}

func (r *Registry) Remove(id string, op auth.Operator) error {
	if _, err := r.Get(id, op); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many went.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
