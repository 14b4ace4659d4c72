// Package server assembles the HTTP surface: the versioned API routes,
// the auth guard, metrics, and health.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	healthhandler "streampulse/backend/internal/health/handler"
	identityhandler "streampulse/backend/internal/identity/handler"
	"streampulse/backend/internal/security"
	"streampulse/backend/internal/server/middleware"
)

// Deps holds the handler dependencies for the router.
type Deps struct {
	// Auth serves register, login, refresh, logout, and /users/me.
	Auth *identityhandler.AuthHandler
	// Tokens verifies access tokens for the auth guard.
	Tokens *security.TokenProvider
	// HealthPinger backs /healthz readiness (e.g. *sql.DB). May be nil.
	HealthPinger healthhandler.Pinger
}

// NewRouter builds the chi router.
//
// Route → handler mapping:
//   - POST /api/v1/auth/register → AuthHandler.Register
//   - POST /api/v1/auth/login    → AuthHandler.Login
//   - POST /api/v1/auth/refresh  → AuthHandler.Refresh
//   - POST /api/v1/auth/logout   → AuthHandler.Logout (guarded)
//   - GET  /api/v1/users/me      → AuthHandler.Me (guarded)
//   - GET  /healthz              → health.Check
//   - GET  /metrics              → Prometheus scrape
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Instrument)

	r.Get("/healthz", healthhandler.NewHandler(deps.HealthPinger).Check)
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.Auth.Register)
			r.Post("/login", deps.Auth.Login)
			r.Post("/refresh", deps.Auth.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(deps.Tokens))
				r.Post("/logout", deps.Auth.Logout)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Tokens))
			r.Get("/me", deps.Auth.Me)
		})
	})

	return r
}
