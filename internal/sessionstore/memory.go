package sessionstore

import (
	"context"
	"sync"

	"github.com/LeadsPlus/rets/pkg/rets"
)

// MemoryStore keeps sessions in a map.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]rets.Session
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]rets.Session)}
}

// Load returns a copy of the session stored under key.
func (s *MemoryStore) Load(ctx context.Context, key string) (*rets.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[key]
	if !ok {
		return nil, rets.ErrSessionNotFound
	}

	clone := session.Clone()

	return &clone, nil
}

// Save stores a copy of session under key.
func (s *MemoryStore) Save(ctx context.Context, key string, session rets.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[key] = session.Clone()

	return nil
}

// Delete removes the session stored under key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)

	return nil
}

// Close drops every session.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]rets.Session)

	return nil
}
