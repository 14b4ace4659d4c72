package repository

import (
	"context"

	"streampulse/backend/internal/identity/domain"
)

// Repository defines persistence for identities. Lookup methods return
// (nil, nil) when no row matches; errors are database failures only.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetByUsername(ctx context.Context, username string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
}
