package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streampulse/backend/internal/audit"
	auditrepo "streampulse/backend/internal/audit/repository"
	"streampulse/backend/internal/config"
	"streampulse/backend/internal/db"
	healthhandler "streampulse/backend/internal/health/handler"
	identityhandler "streampulse/backend/internal/identity/handler"
	identityrepo "streampulse/backend/internal/identity/repository"
	identityservice "streampulse/backend/internal/identity/service"
	"streampulse/backend/internal/security"
	"streampulse/backend/internal/server"
	sessionrepo "streampulse/backend/internal/session/repository"
	"streampulse/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "streampulse-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	tokens, err := security.NewTokenProvider(
		[]byte(cfg.JWTAccessSecret),
		[]byte(cfg.JWTRefreshSecret),
		cfg.JWTIssuer,
		cfg.AccessTTL(),
		cfg.RefreshTTL(),
	)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	hasher := security.NewHasher(cfg.BcryptCost)

	// With no DATABASE_URL the server runs fully in memory: identities
	// and sessions vanish on restart. Development only; config rejects
	// this in production.
	var (
		conn       *sql.DB
		identities identityservice.IdentityRepo
		sessions   sessionrepo.Store
		sinks      audit.Fanout
	)
	if cfg.DatabaseURL != "" {
		conn, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer conn.Close()
		identities = identityrepo.NewPostgresRepository(conn)
		sessions = sessionrepo.NewPostgresStore(conn)
		sinks = append(sinks, audit.NewLogger(auditrepo.NewPostgresRepository(conn)))
	} else {
		log.Println("DATABASE_URL not set; using in-memory stores")
		identities = identityrepo.NewMemoryRepository()
		sessions = sessionrepo.NewMemoryStore()
	}
	sinks = append(sinks, otel.NewEventLogger(providers.LoggerProvider))

	authService := identityservice.NewAuthService(identities, sessions, hasher, tokens, sinks)
	authHandler := identityhandler.NewAuthHandler(authService, cfg.AccessTTL(), cfg.RefreshTTL())

	var pinger healthhandler.Pinger
	if conn != nil {
		pinger = conn
	}
	router := server.NewRouter(server.Deps{
		Auth:         authHandler,
		Tokens:       tokens,
		HealthPinger: pinger,
	})

	srv := server.New(cfg.HTTPAddr, router)
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
