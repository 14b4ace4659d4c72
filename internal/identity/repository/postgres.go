package repository

import (
	"context"
	"database/sql"
	"errors"

	"streampulse/backend/internal/identity/domain"
)

const identityColumns = `id, email, username, full_name, avatar_url, cover_image_url, credential_hash, current_refresh_hash, created_at, updated_at`

// PostgresRepository persists identities in the identities table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// GetByEmail returns the identity with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
	return scanIdentity(row)
}

// GetByUsername returns the identity with the given username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE username = $1`, username)
	return scanIdentity(row)
}

// Create persists the identity. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (id, email, username, full_name, avatar_url, cover_image_url, credential_hash, current_refresh_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		i.ID,
		i.Email,
		i.Username,
		// full_name is NOT NULL; the service requires it at registration.
		i.FullName,
		nullString(i.AvatarURL),
		nullString(i.CoverImageURL),
		i.CredentialHash,
		nullString(i.CurrentRefreshHash),
		i.CreatedAt,
		i.UpdatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*domain.Identity, error) {
	var (
		i                                        domain.Identity
		fullName, avatarURL, coverURL, refreshHash sql.NullString
	)
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Username,
		&fullName,
		&avatarURL,
		&coverURL,
		&i.CredentialHash,
		&refreshHash,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.FullName = fullName.String
	i.AvatarURL = avatarURL.String
	i.CoverImageURL = coverURL.String
	i.CurrentRefreshHash = refreshHash.String
	return &i, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
