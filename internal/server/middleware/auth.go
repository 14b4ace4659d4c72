package middleware

import (
	"net/http"
	"strings"

	"streampulse/backend/internal/security"
)

const bearerPrefix = "bearer "

// AccessTokenCookie is the cookie the auth handlers set for the access
// token. The guard accepts it as a fallback when no Authorization
// header is present.
const AccessTokenCookie = "accessToken"

// RequireAuth validates the Bearer (access) token from the
// Authorization header, or the accessToken cookie when no header is
// set, and puts the identity id in the request context. Every failure
// mode responds with the same 401 body: a missing token, a bad
// signature, an expired token, or a refresh token presented in place
// of an access token are indistinguishable to the caller.
func RequireAuth(tokens *security.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				unauthorized(w)
				return
			}
			identityID, err := tokens.Verify(token, security.TokenKindAccess)
			if err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentityID(r.Context(), identityID)))
		})
	}
}

// extractToken returns the access token from the Authorization header
// or the accessToken cookie, or "" when neither is present.
func extractToken(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("Authorization")); v != "" {
		if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
			return ""
		}
		return strings.TrimSpace(v[len(bearerPrefix):])
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
