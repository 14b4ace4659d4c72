package repository

import (
	"context"
	"sync"

	"streampulse/backend/internal/identity/domain"
)

// MemoryRepository is an in-memory Repository used when no database is
// configured (local development) and by tests.
type MemoryRepository struct {
	mu         sync.RWMutex
	identities map[string]*domain.Identity
}

// NewMemoryRepository returns an empty in-memory identity repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{identities: make(map[string]*domain.Identity)}
}

// GetByID returns the identity or (nil, nil) when absent.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identities[id], nil
}

// GetByEmail returns the identity or (nil, nil) when absent.
func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, i := range r.identities {
		if i.Email == email {
			return i, nil
		}
	}
	return nil, nil
}

// GetByUsername returns the identity or (nil, nil) when absent.
func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, i := range r.identities {
		if i.Username == username {
			return i, nil
		}
	}
	return nil, nil
}

// Create stores the identity.
func (r *MemoryRepository) Create(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities[i.ID] = i
	return nil
}
