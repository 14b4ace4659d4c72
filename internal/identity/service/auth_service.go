package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"streampulse/backend/internal/identity/domain"
	"streampulse/backend/internal/security"
	sessionrepo "streampulse/backend/internal/session/repository"
)

// Sentinel errors for the auth service; the HTTP layer maps them to
// status codes and collapses every authentication failure to a uniform
// 401 so clients cannot distinguish why a token or credential failed.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrUsernameAlreadyTaken   = errors.New("username already taken")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidRefreshToken    = errors.New("invalid or expired refresh token")
	ErrSessionInvalidated     = errors.New("session invalidated; re-authentication required")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidationError marks bad registration input so the HTTP layer can
// answer 400 without treating infrastructure failures as client errors.
type ValidationError struct{ msg string }

func (e *ValidationError) Error() string { return e.msg }

func invalidInput(msg string) error { return &ValidationError{msg: msg} }

// TokenPair holds a freshly issued access and refresh token. Ephemeral:
// never persisted beyond the client, only the refresh token's hash is
// stored.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// IdentityRepo is the minimal identity repository needed by the auth service.
type IdentityRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetByUsername(ctx context.Context, username string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
}

// AuditLogger records auth events best-effort; implementations must not
// return errors to callers.
type AuditLogger interface {
	LogEvent(ctx context.Context, identityID, action, metadata string)
}

// AuthService implements register, login, refresh, and logout over an
// identity repository and the session store. It enforces the
// single-active-refresh-token invariant: login overwrites, refresh
// rotates via compare-and-swap, logout clears.
type AuthService struct {
	identities IdentityRepo
	sessions   sessionrepo.Store
	hasher     *security.Hasher
	tokens     *security.TokenProvider
	audit      AuditLogger
	now        func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// audit may be nil.
func NewAuthService(identities IdentityRepo, sessions sessionrepo.Store, hasher *security.Hasher, tokens *security.TokenProvider, audit AuditLogger) *AuthService {
	return &AuthService{
		identities: identities,
		sessions:   sessions,
		hasher:     hasher,
		tokens:     tokens,
		audit:      audit,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an identity with the given email, username, full
// name, and password. The response never carries the credential hash.
func (s *AuthService) Register(ctx context.Context, email, username, fullName, password string) (*domain.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(strings.ToLower(username))
	fullName = strings.TrimSpace(fullName)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, invalidInput("username is required")
	}
	if fullName == "" {
		return nil, invalidInput("full name is required")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if existing, err := s.identities.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	if existing, err := s.identities.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameAlreadyTaken
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := s.now()
	identity := &domain.Identity{
		ID:             uuid.New().String(),
		Email:          email,
		Username:       username,
		FullName:       fullName,
		CredentialHash: hashed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, err
	}
	s.logEvent(ctx, identity.ID, "register", identity.Username)
	return identity, nil
}

// Login authenticates by email or username plus password, issues a
// token pair, and records the new refresh token as the identity's
// single live session. A prior session, if any, is overwritten.
func (s *AuthService) Login(ctx context.Context, login, password string) (*TokenPair, *domain.Identity, error) {
	login = strings.TrimSpace(strings.ToLower(login))
	if login == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}
	identity, err := s.findByLogin(ctx, login)
	if err != nil {
		return nil, nil, err
	}
	// Unknown account and wrong password are indistinguishable outward.
	if identity == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(identity.CredentialHash, []byte(password)); err != nil {
		s.logEvent(ctx, identity.ID, "login_failure", "")
		return nil, nil, ErrInvalidCredentials
	}
	pair, err := s.issuePair(identity.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.sessions.SetRefreshToken(ctx, identity.ID, security.HashRefreshToken(pair.RefreshToken)); err != nil {
		return nil, nil, fmt.Errorf("record session: %w", err)
	}
	s.logEvent(ctx, identity.ID, "login", "")
	return pair, identity, nil
}

// Refresh validates the incoming refresh token and rotates it. The new
// pair is issued before the store call so the compare-and-rotate is the
// single atomic step; until it succeeds, the new tokens gate nothing.
// A stale store value is terminal: either a concurrent refresh won the
// race or the token was replayed after rotation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	identityID, err := s.tokens.Verify(refreshToken, security.TokenKindRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}
	pair, err := s.issuePair(identityID)
	if err != nil {
		return nil, err
	}
	err = s.sessions.CompareAndRotate(ctx,
		identityID,
		security.HashRefreshToken(refreshToken),
		security.HashRefreshToken(pair.RefreshToken),
	)
	if err != nil {
		if errors.Is(err, sessionrepo.ErrStaleSession) {
			s.logEvent(ctx, identityID, "refresh_stale", "")
			return nil, fmt.Errorf("%w: %w", ErrSessionInvalidated, err)
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	s.logEvent(ctx, identityID, "refresh", "")
	return pair, nil
}

// Logout clears the identity's stored refresh token. Idempotent: a
// second logout, or logout with no live session, succeeds.
func (s *AuthService) Logout(ctx context.Context, identityID string) error {
	if err := s.sessions.Clear(ctx, identityID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logEvent(ctx, identityID, "logout", "")
	return nil
}

// CurrentIdentity returns the identity for id, or ErrInvalidCredentials
// when it no longer exists.
func (s *AuthService) CurrentIdentity(ctx context.Context, identityID string) (*domain.Identity, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, ErrInvalidCredentials
	}
	return identity, nil
}

// WithClock overrides the service's time source for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func (s *AuthService) issuePair(identityID string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(identityID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(identityID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    s.now().Add(s.tokens.AccessTTL()),
	}, nil
}

func (s *AuthService) findByLogin(ctx context.Context, login string) (*domain.Identity, error) {
	if strings.Contains(login, "@") {
		return s.identities.GetByEmail(ctx, login)
	}
	return s.identities.GetByUsername(ctx, login)
}

func (s *AuthService) logEvent(ctx context.Context, identityID, action, metadata string) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, identityID, action, metadata)
	}
}

func validateEmail(email string) error {
	if email == "" {
		return invalidInput("email is required")
	}
	if !emailPattern.MatchString(email) {
		return invalidInput("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return invalidInput("password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper {
		return invalidInput("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return invalidInput("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return invalidInput("password must contain at least one number")
	}
	if !hasSymbol {
		return invalidInput("password must contain at least one symbol")
	}
	return nil
}
