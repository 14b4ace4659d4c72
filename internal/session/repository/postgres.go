package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore implements Store over the identities table. The
// conditional UPDATE gives compare-and-rotate its atomicity: Postgres
// serializes row-level writes, so two racing rotations with the same
// expected hash cannot both match.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a session store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// SetRefreshToken unconditionally overwrites the stored refresh hash.
func (s *PostgresStore) SetRefreshToken(ctx context.Context, identityID, newHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE identities SET current_refresh_hash = $2, updated_at = $3 WHERE id = $1`,
		identityID, newHash, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res, ErrIdentityNotFound)
}

// CompareAndRotate swaps the stored hash for newHash only when it still
// equals expectedOldHash. Zero rows affected means the session moved on
// (concurrent rotation) or the token does not match (replay); both
// surface as ErrStaleSession.
func (s *PostgresStore) CompareAndRotate(ctx context.Context, identityID, expectedOldHash, newHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE identities SET current_refresh_hash = $3, updated_at = $4
		WHERE id = $1 AND current_refresh_hash = $2`,
		identityID, expectedOldHash, newHash, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res, ErrStaleSession)
}

// Clear sets the stored hash to NULL. Idempotent: clearing an identity
// with no live session, or no row at all, is not an error.
func (s *PostgresStore) Clear(ctx context.Context, identityID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE identities SET current_refresh_hash = NULL, updated_at = $2 WHERE id = $1`,
		identityID, time.Now().UTC())
	return err
}

// Get returns the stored refresh hash, or "" when no session is live.
func (s *PostgresStore) Get(ctx context.Context, identityID string) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT current_refresh_hash FROM identities WHERE id = $1`, identityID).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return hash.String, nil
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
