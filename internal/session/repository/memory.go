package repository

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store used when no database is configured
// (local development) and by tests. The mutex gives CompareAndRotate
// the same check-and-set atomicity the Postgres conditional UPDATE
// provides.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemoryStore returns an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

// SetRefreshToken unconditionally overwrites the stored hash.
func (s *MemoryStore) SetRefreshToken(ctx context.Context, identityID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[identityID] = newHash
	return nil
}

// CompareAndRotate swaps the stored hash only when it equals
// expectedOldHash; otherwise ErrStaleSession.
func (s *MemoryStore) CompareAndRotate(ctx context.Context, identityID, expectedOldHash, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.m[identityID]
	if !ok || current != expectedOldHash {
		return ErrStaleSession
	}
	s.m[identityID] = newHash
	return nil
}

// Clear removes the stored hash. Idempotent.
func (s *MemoryStore) Clear(ctx context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, identityID)
	return nil
}

// Get returns the stored hash, or "" when no session is live.
func (s *MemoryStore) Get(ctx context.Context, identityID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[identityID], nil
}
