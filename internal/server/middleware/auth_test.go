package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streampulse/backend/internal/security"
)

func newGuardedServer(t *testing.T, tokens *security.TokenProvider) http.Handler {
	t.Helper()
	var inner http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityID(r.Context())
		if !ok {
			t.Error("identity id missing from context")
		}
		w.Write([]byte(id))
	})
	return RequireAuth(tokens)(inner)
}

func TestRequireAuth_BearerHeader(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatal(err)
	}
	access, err := tokens.IssueAccess("id-1")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	newGuardedServer(t, tokens).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "id-1" {
		t.Errorf("identity = %q, want id-1", rec.Body.String())
	}
}

func TestRequireAuth_CookieFallback(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatal(err)
	}
	access, err := tokens.IssueAccess("id-2")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: access})
	rec := httptest.NewRecorder()
	newGuardedServer(t, tokens).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequireAuth_Failures(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatal(err)
	}
	refresh, err := tokens.IssueRefresh("id-1")
	if err != nil {
		t.Fatal(err)
	}
	expiredProvider, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	expired, err := expiredProvider.WithClock(func() time.Time { return past }).Issue("id-1", security.TokenKindAccess, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"no token", func(r *http.Request) {}},
		{"garbage header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer not.a.jwt") }},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwYXNz") }},
		{"refresh token as access", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+refresh) }},
		{"expired access token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }},
	}

	guard := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			guard.ServeHTTP(rec, req)

			if rec.Code != 401 {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			// Failure modes are indistinguishable outward.
			if rec.Body.String() != `{"error":"unauthorized"}` {
				t.Errorf("body = %q, want uniform unauthorized", rec.Body.String())
			}
		})
	}
}
