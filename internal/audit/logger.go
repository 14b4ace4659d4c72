package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"streampulse/backend/internal/audit/domain"
	auditrepo "streampulse/backend/internal/audit/repository"
)

// Logger writes auth audit events through the audit repository.
// Best-effort: failures are logged and never surface to the caller, so
// a broken audit path cannot fail a login.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns a Logger persisting to repo. repo may be nil, in
// which case events are dropped.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent records one audit entry for the identity.
func (l *Logger) LogEvent(ctx context.Context, identityID, action, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		Action:     action,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s for %s: %v", action, identityID, err)
	}
}
