package domain

import (
	"errors"
	"strings"
	"time"
)

// Identity is the registered principal. CredentialHash is the bcrypt
// hash of the password; CurrentRefreshHash is the SHA-256 hash of the
// single live refresh token, empty when no session is active. Only the
// auth service mutates CurrentRefreshHash, through the session store.
type Identity struct {
	ID                 string
	Email              string
	Username           string
	FullName           string
	AvatarURL          string
	CoverImageURL      string
	CredentialHash     string
	CurrentRefreshHash string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate checks the identity for persistence.
func (i *Identity) Validate() error {
	if i.ID == "" {
		return errors.New("id is required")
	}
	if i.Email == "" {
		return errors.New("email is required")
	}
	if i.Username == "" {
		return errors.New("username is required")
	}
	if i.Username != strings.ToLower(i.Username) {
		return errors.New("username must be lowercase")
	}
	return nil
}

// Public is the client-safe view of an identity: no credential hash,
// no refresh token state.
type Public struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	CoverImageURL string    `json:"coverImageUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Public returns the client-safe view of the identity.
func (i *Identity) Public() Public {
	return Public{
		ID:            i.ID,
		Email:         i.Email,
		Username:      i.Username,
		FullName:      i.FullName,
		AvatarURL:     i.AvatarURL,
		CoverImageURL: i.CoverImageURL,
		CreatedAt:     i.CreatedAt,
	}
}
