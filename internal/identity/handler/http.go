// Package handler exposes the auth service over HTTP: register, login,
// refresh, logout, and the current-identity endpoint.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"streampulse/backend/internal/identity/service"
	"streampulse/backend/internal/server/middleware"
)

// RefreshTokenCookie is the cookie the auth handlers set for the
// refresh token. Logout clears this exact name, so an expired cookie
// can never linger past logout.
const RefreshTokenCookie = "refreshToken"

// AuthHandler serves the auth endpoints. Token lifetimes drive the
// cookie Max-Age values so cookies and tokens expire together.
type AuthHandler struct {
	auth       *service.AuthService
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthHandler returns an AuthHandler backed by the auth service.
func NewAuthHandler(auth *service.AuthService, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Username string `json:"userName"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"userName"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Register creates a new identity. 201 on success, 409 when the email
// or username is taken, 400 on validation failure.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	identity, err := h.auth.Register(r.Context(), req.Email, req.Username, req.FullName, req.Password)
	if err != nil {
		var invalid *service.ValidationError
		switch {
		case errors.Is(err, service.ErrEmailAlreadyRegistered),
			errors.Is(err, service.ErrUsernameAlreadyTaken):
			writeError(w, http.StatusConflict, err.Error())
		case errors.As(err, &invalid):
			writeError(w, http.StatusBadRequest, invalid.Error())
		default:
			// Repository failures must not surface driver text as a
			// client error.
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": identity.Public()})
}

// Login authenticates by email or username plus password. On success
// it sets the token cookies and returns the pair in the body as well,
// for clients that prefer the Authorization header.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	login := req.Email
	if login == "" {
		login = req.Username
	}
	pair, identity, err := h.auth.Login(r.Context(), login, req.Password)
	if err != nil {
		// Unknown account, wrong password, and malformed input all
		// produce the same response.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":         identity.Public(),
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Refresh rotates the refresh token. The incoming token is read from
// the refreshToken cookie or the request body. Any failure, including
// a replayed or superseded token, is a uniform 401 with the cookies
// cleared so the client falls back to login.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = req.RefreshToken
		}
	}
	pair, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		h.expireTokenCookies(w)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Logout clears the caller's session and expires both token cookies.
// Idempotent: logging out twice succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.IdentityID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.auth.Logout(r.Context(), identityID); err != nil {
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	h.expireTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Me returns the authenticated identity's public profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.IdentityID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	identity, err := h.auth.CurrentIdentity(r.Context(), identityID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": identity.Public()})
}

func (h *AuthHandler) setTokenCookies(w http.ResponseWriter, pair *service.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.accessTTL.Seconds()),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.refreshTTL.Seconds()),
	})
}

func (h *AuthHandler) expireTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: middleware.AccessTokenCookie, Value: "", Path: "/", HttpOnly: true, Secure: true, MaxAge: -1})
	http.SetCookie(w, &http.Cookie{Name: RefreshTokenCookie, Value: "", Path: "/", HttpOnly: true, Secure: true, MaxAge: -1})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
