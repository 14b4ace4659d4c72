package otel

import (
	"context"
	"testing"

	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestNewEventLogger_NilProvider(t *testing.T) {
	l := NewEventLogger(nil)
	if l == nil {
		t.Fatal("logger should not be nil")
	}
	// No-op; must not panic.
	l.LogEvent(context.Background(), "id-1", "login", "")
}

func TestEventLogger_Emit(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer provider.Shutdown(context.Background())

	l := NewEventLogger(provider)
	l.LogEvent(context.Background(), "id-1", "refresh", "meta")
	l.LogEvent(context.Background(), "id-1", "logout", "")
}
