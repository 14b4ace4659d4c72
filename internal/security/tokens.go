package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Codec-level error taxonomy. Callers branch on these with errors.Is;
// the service layer collapses them before anything reaches a client.
var (
	// ErrMalformed is returned when a token cannot be parsed or is
	// missing required claims.
	ErrMalformed = errors.New("malformed token")
	// ErrInvalidSignature is returned when the signature check fails,
	// including tokens signed with the other kind's secret.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned when the token is past its expiry.
	ErrExpired = errors.New("token expired")
)

// TokenKind selects which signing secret a token is bound to.
type TokenKind string

const (
	// TokenKindAccess is the short-lived, self-verifying credential.
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh is the long-lived credential used only for rotation.
	TokenKindRefresh TokenKind = "refresh"
)

// Claims are the JWT claims carried by both token kinds.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenProvider issues and verifies HS256 access and refresh JWTs.
// Each kind signs with its own secret, so presenting a refresh token
// where an access token is expected fails as a signature error rather
// than a claim check.
type TokenProvider struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenProvider returns a TokenProvider signing with the given
// per-kind secrets. Both secrets must be non-empty and distinct.
func NewTokenProvider(accessSecret, refreshSecret []byte, issuer string, accessTTL, refreshTTL time.Duration) (*TokenProvider, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, errors.New("security: token secrets must be set")
	}
	if string(accessSecret) == string(refreshSecret) {
		return nil, errors.New("security: access and refresh secrets must differ")
	}
	return &TokenProvider{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the provider's time source. Tests use this to pin
// issuance and verification times.
func (p *TokenProvider) WithClock(now func() time.Time) *TokenProvider {
	p.now = now
	return p
}

// AccessTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// Issue signs a token of the given kind for identityID, expiring at
// now+ttl.
func (p *TokenProvider) Issue(identityID string, kind TokenKind, ttl time.Duration) (string, error) {
	secret, err := p.secretFor(kind)
	if err != nil {
		return "", err
	}
	now := p.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// jti makes each issued token unique even within one clock
			// tick, so a rotated refresh token never equals its
			// predecessor.
			ID:        uuid.NewString(),
			Subject:   identityID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// IssueAccess issues an access token with the configured access TTL.
func (p *TokenProvider) IssueAccess(identityID string) (string, error) {
	return p.Issue(identityID, TokenKindAccess, p.accessTTL)
}

// IssueRefresh issues a refresh token with the configured refresh TTL.
func (p *TokenProvider) IssueRefresh(identityID string) (string, error) {
	return p.Issue(identityID, TokenKindRefresh, p.refreshTTL)
}

// Verify checks signature, kind-specific secret, issuer, and expiry,
// and returns the subject identity id. Pure function of token, secret,
// and the provider's clock; no store access.
func (p *TokenProvider) Verify(tokenString string, kind TokenKind) (string, error) {
	secret, err := p.secretFor(kind)
	if err != nil {
		return "", err
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidSignature
		}
		return secret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithIssuer(p.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", classifyJWTError(err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrMalformed
	}
	return claims.Subject, nil
}

func (p *TokenProvider) secretFor(kind TokenKind) ([]byte, error) {
	switch kind {
	case TokenKindAccess:
		return p.accessSecret, nil
	case TokenKindRefresh:
		return p.refreshSecret, nil
	default:
		return nil, fmt.Errorf("security: unknown token kind %q", kind)
	}
}

// classifyJWTError maps jwt/v5 parse errors onto the closed codec
// taxonomy so callers never have to inspect error strings.
func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
