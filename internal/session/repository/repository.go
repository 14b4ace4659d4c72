package repository

import (
	"context"
	"errors"
)

// ErrStaleSession is returned by CompareAndRotate when the stored
// refresh hash no longer equals the expected value: either a concurrent
// request already rotated it, or the presented token was replayed.
var ErrStaleSession = errors.New("session: stale refresh token")

// ErrIdentityNotFound is returned when the identity row does not exist.
var ErrIdentityNotFound = errors.New("session: identity not found")

// Store owns the single current_refresh_hash value per identity — the
// single-session invariant lives here. Implementations must make
// CompareAndRotate atomic with respect to concurrent callers for the
// same identity: of two racing rotations presented with the same stale
// hash, exactly one succeeds.
type Store interface {
	// SetRefreshToken unconditionally overwrites the stored hash. Login only.
	SetRefreshToken(ctx context.Context, identityID, newHash string) error
	// CompareAndRotate replaces the stored hash with newHash only if it
	// currently equals expectedOldHash; otherwise ErrStaleSession.
	CompareAndRotate(ctx context.Context, identityID, expectedOldHash, newHash string) error
	// Clear removes the stored hash. Idempotent; logout.
	Clear(ctx context.Context, identityID string) error
	// Get returns the stored hash ("" when none) for diagnostics.
	Get(ctx context.Context, identityID string) (string, error)
}
