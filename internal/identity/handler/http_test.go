package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"streampulse/backend/internal/identity/domain"
	"streampulse/backend/internal/identity/service"
	"streampulse/backend/internal/security"
	"streampulse/backend/internal/server/middleware"
	sessionrepo "streampulse/backend/internal/session/repository"

	"github.com/go-chi/chi/v5"
)

type memIdentityRepo struct {
	mu         sync.Mutex
	identities map[string]*domain.Identity
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{identities: make(map[string]*domain.Identity)}
}

func (r *memIdentityRepo) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identities[id], nil
}

func (r *memIdentityRepo) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.identities {
		if i.Email == email {
			return i, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.identities {
		if i.Username == username {
			return i, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) Create(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities[i.ID] = i
	return nil
}

// newTestRouter wires the auth handler into the same routes the server
// uses, backed by in-memory stores.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	auth := service.NewAuthService(
		newMemIdentityRepo(),
		sessionrepo.NewMemoryStore(),
		security.NewHasher(4),
		tokens,
		nil,
	)
	h := NewAuthHandler(auth, tokens.AccessTTL(), tokens.RefreshTTL())

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(tokens))
				r.Post("/logout", h.Logout)
			})
		})
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAuth(tokens))
			r.Get("/me", h.Me)
		})
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, h http.Handler, email, username string) {
	t.Helper()
	rec := doJSON(t, h, "POST", "/api/v1/auth/register", map[string]string{
		"fullName": "Test User",
		"email":    email,
		"userName": username,
		"password": "Sup3r$ecret",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func cookieValue(rec *httptest.ResponseRecorder, name string) (string, bool) {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value, c.MaxAge >= 0
		}
	}
	return "", false
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h := newTestRouter(t)
	register(t, h, "dup@example.com", "first")

	rec := doJSON(t, h, "POST", "/api/v1/auth/register", map[string]string{
		"fullName": "Other",
		"email":    "dup@example.com",
		"userName": "second",
		"password": "Sup3r$ecret",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestRegister_MissingFullName(t *testing.T) {
	h := newTestRouter(t)
	rec := doJSON(t, h, "POST", "/api/v1/auth/register", map[string]string{
		"email":    "nameless@example.com",
		"userName": "nameless",
		"password": "Sup3r$ecret",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

type failingIdentityRepo struct {
	*memIdentityRepo
	err error
}

func (r *failingIdentityRepo) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return nil, r.err
}

func TestRegister_RepositoryFailureIs500(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	repo := &failingIdentityRepo{
		memIdentityRepo: newMemIdentityRepo(),
		err:             errors.New("pq: connection refused"),
	}
	auth := service.NewAuthService(repo, sessionrepo.NewMemoryStore(), security.NewHasher(4), tokens, nil)
	authHandler := NewAuthHandler(auth, tokens.AccessTTL(), tokens.RefreshTTL())
	h := chi.NewRouter()
	h.Post("/api/v1/auth/register", authHandler.Register)

	rec := doJSON(t, h, "POST", "/api/v1/auth/register", map[string]string{
		"fullName": "Test User",
		"email":    "down@example.com",
		"userName": "down",
		"password": "Sup3r$ecret",
	}, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	// Driver text must not leak to the client.
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("response leaks repository error: %s", rec.Body.String())
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	h := newTestRouter(t)
	rec := doJSON(t, h, "POST", "/api/v1/auth/register", map[string]string{
		"fullName": "Weak",
		"email":    "weak@example.com",
		"userName": "weak",
		"password": "short",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLogin_SetsCookiesAndBody(t *testing.T) {
	h := newTestRouter(t)
	register(t, h, "a@example.com", "alice")

	rec := doJSON(t, h, "POST", "/api/v1/auth/login", map[string]string{
		"email": "a@example.com", "password": "Sup3r$ecret",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	access, _ := cookieValue(rec, middleware.AccessTokenCookie)
	refresh, _ := cookieValue(rec, RefreshTokenCookie)
	if access == "" || refresh == "" {
		t.Fatal("login must set both token cookies")
	}

	var body struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		User         struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.AccessToken != access || body.RefreshToken != refresh {
		t.Error("body tokens must match cookie tokens")
	}
	if body.User.Email != "a@example.com" {
		t.Errorf("user email = %q", body.User.Email)
	}
	if strings.Contains(rec.Body.String(), "credential") || strings.Contains(rec.Body.String(), "Hash") {
		t.Error("response must not leak credential or refresh hash fields")
	}
}

func TestLogin_ByUsername(t *testing.T) {
	h := newTestRouter(t)
	register(t, h, "b@example.com", "bob")

	rec := doJSON(t, h, "POST", "/api/v1/auth/login", map[string]string{
		"userName": "bob", "password": "Sup3r$ecret",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login by username status = %d", rec.Code)
	}
}

func TestLogin_BadCredentialsUniform(t *testing.T) {
	h := newTestRouter(t)
	register(t, h, "c@example.com", "carol")

	wrongPassword := doJSON(t, h, "POST", "/api/v1/auth/login", map[string]string{
		"email": "c@example.com", "password": "Wr0ng$ecret",
	}, nil)
	unknownAccount := doJSON(t, h, "POST", "/api/v1/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "Sup3r$ecret",
	}, nil)

	if wrongPassword.Code != http.StatusUnauthorized || unknownAccount.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d, want 401, 401", wrongPassword.Code, unknownAccount.Code)
	}
	if wrongPassword.Body.String() != unknownAccount.Body.String() {
		t.Error("wrong password and unknown account must be indistinguishable")
	}
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	h := newTestRouter(t)
	register(t, h, "d@example.com", "dave")

	login := doJSON(t, h, "POST", "/api/v1/auth/login", map[string]string{
		"email": "d@example.com", "password": "Sup3r$ecret",
	}, nil)
	r1, _ := cookieValue(login, RefreshTokenCookie)

	refresh := doJSON(t, h, "POST", "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: r1})
	})
	if refresh.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", refresh.Code, refresh.Body.String())
	}
	r2, _ := cookieValue(refresh, RefreshTokenCookie)
	if r2 == "" || r2 == r1 {
		t.Fatal("refresh must rotate the refresh token cookie")
	}

	// Replaying the superseded token is terminal.
	replay := doJSON(t, h, "POST", "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: r1})
	})
	if replay.Code != http.StatusUnauthorized {
		t.Errorf("replay status = %d, want 401", replay.Code)
	}
	if _, live := cookieValue(replay, RefreshTokenCookie); live {
		t.Error("failed refresh must expire the refresh cookie")
	}

	// The winner's token still works.
	again := doJSON(t, h, "POST", "/api/v1/auth/refresh", map[string]string{"refreshToken": r2}, nil)
	if again.Code != http.StatusOK {
		t.Errorf("current token refresh status = %d", again.Code)
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	h := newTestRouter(t)
	rec := doJSON(t, h, "POST", "/api/v1/auth/refresh", map[string]string{"refreshToken": "not.a.jwt"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLogout_ClearsCookiesAndSession(t *testing.T) {
	h := newTestRouter(t)
	register(t, h, "e@example.com", "erin")

	login := doJSON(t, h, "POST", "/api/v1/auth/login", map[string]string{
		"email": "e@example.com", "password": "Sup3r$ecret",
	}, nil)
	access, _ := cookieValue(login, middleware.AccessTokenCookie)
	refresh, _ := cookieValue(login, RefreshTokenCookie)

	logout := doJSON(t, h, "POST", "/api/v1/auth/logout", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
	})
	if logout.Code != http.StatusOK {
		t.Fatalf("logout status = %d", logout.Code)
	}
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		if _, live := cookieValue(logout, name); live {
			t.Errorf("logout must expire %s cookie", name)
		}
	}

	// The refresh token held before logout is dead.
	rec := doJSON(t, h, "POST", "/api/v1/auth/refresh", map[string]string{"refreshToken": refresh}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout status = %d, want 401", rec.Code)
	}

	// Logout is idempotent while the access token is still valid.
	again := doJSON(t, h, "POST", "/api/v1/auth/logout", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
	})
	if again.Code != http.StatusOK {
		t.Errorf("second logout status = %d", again.Code)
	}
}

func TestMe(t *testing.T) {
	h := newTestRouter(t)
	register(t, h, "f@example.com", "frank")

	login := doJSON(t, h, "POST", "/api/v1/auth/login", map[string]string{
		"email": "f@example.com", "password": "Sup3r$ecret",
	}, nil)
	access, _ := cookieValue(login, middleware.AccessTokenCookie)

	me := doJSON(t, h, "GET", "/api/v1/users/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
	})
	if me.Code != http.StatusOK {
		t.Fatalf("me status = %d", me.Code)
	}
	var body struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := json.Unmarshal(me.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User.Username != "frank" {
		t.Errorf("username = %q, want frank", body.User.Username)
	}

	anon := doJSON(t, h, "GET", "/api/v1/users/me", nil, nil)
	if anon.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated me status = %d, want 401", anon.Code)
	}
}
