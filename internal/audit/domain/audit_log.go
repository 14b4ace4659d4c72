package domain

import "time"

// AuditLog is one recorded auth event (register, login, refresh, logout).
type AuditLog struct {
	ID         string
	IdentityID string
	Action     string
	Metadata   string
	CreatedAt  time.Time
}
