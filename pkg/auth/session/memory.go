package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create starts a session for email valid for ttl.
func (s *MemoryStore) Create(_ context.Context, email string, ttl time.Duration) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		Email:     email,
		ExpiresAt: s.now().Add(ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	copied := *sess
	return &copied, nil
}

// Put stores sess under its own ID, replacing any session with that ID.
// A zero ExpiresAt never expires.
func (s *MemoryStore) Put(sess Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = &sess
	s.mu.Unlock()
}

// Get returns the session with the given ID. Expired sessions are removed
// and reported as ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	if !sess.ExpiresAt.IsZero() && !s.now().Before(sess.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	copied := *sess
	return &copied, nil
}

// Delete ends a session. Deleting an unknown session is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}
