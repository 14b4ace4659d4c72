// seed inserts a development identity for local testing.
// Idempotent: skips the insert if dev@example.com already exists.
package main

import (
	"context"
	"log"
	"time"

	"streampulse/backend/internal/config"
	"streampulse/backend/internal/db"
	"streampulse/backend/internal/identity/domain"
	identityrepo "streampulse/backend/internal/identity/repository"
	"streampulse/backend/internal/security"
)

const (
	devIdentityID = "dev-identity-001"
	devEmail      = "dev@example.com"
	devUsername   = "dev"
	devPassword   = "Dev$Password1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	repo := identityrepo.NewPostgresRepository(conn)

	existing, err := repo.GetByEmail(ctx, devEmail)
	if err != nil {
		log.Fatalf("lookup: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %s already exists, nothing to do", devEmail)
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	identity := &domain.Identity{
		ID:             devIdentityID,
		Email:          devEmail,
		Username:       devUsername,
		FullName:       "Dev User",
		CredentialHash: hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.Create(ctx, identity); err != nil {
		log.Fatalf("create: %v", err)
	}
	log.Printf("seed: created %s (password %s)", devEmail, devPassword)
}
