package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// EventLogger emits auth events (login, refresh, logout, ...) as OTel
// log records. It satisfies the auth service's AuditLogger interface so
// events can be fanned out to both the audit table and the collector.
type EventLogger struct {
	logger otellog.Logger
}

// NewEventLogger returns an EventLogger backed by provider. A nil
// provider yields a no-op logger.
func NewEventLogger(provider *sdklog.LoggerProvider) *EventLogger {
	if provider == nil {
		return &EventLogger{}
	}
	return &EventLogger{logger: provider.Logger("streampulse.auth")}
}

// LogEvent emits one auth event. Best-effort; never blocks the caller
// beyond the record build.
func (l *EventLogger) LogEvent(ctx context.Context, identityID, action, metadata string) {
	if l == nil || l.logger == nil {
		return
	}
	rec := otellog.Record{}
	rec.SetTimestamp(time.Now().UTC())
	rec.SetBody(otellog.StringValue(action))
	rec.AddAttributes(
		otellog.String("identity_id", identityID),
		otellog.String("event_type", action),
	)
	if metadata != "" {
		rec.AddAttributes(otellog.String("metadata", metadata))
	}
	l.logger.Emit(ctx, rec)
}
