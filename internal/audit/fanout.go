package audit

import "context"

// Sink receives auth events. Implementations must be best-effort.
type Sink interface {
	LogEvent(ctx context.Context, identityID, action, metadata string)
}

// Fanout duplicates each event to every sink.
type Fanout []Sink

// LogEvent forwards the event to all sinks.
func (f Fanout) LogEvent(ctx context.Context, identityID, action, metadata string) {
	for _, s := range f {
		if s != nil {
			s.LogEvent(ctx, identityID, action, metadata)
		}
	}
}
