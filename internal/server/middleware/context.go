package middleware

import "context"

type contextKey struct{ name string }

var identityIDKey = contextKey{"identity_id"}

// WithIdentityID returns a context carrying the authenticated identity id.
// Handlers read it back via IdentityID.
func WithIdentityID(ctx context.Context, identityID string) context.Context {
	return context.WithValue(ctx, identityIDKey, identityID)
}

// IdentityID returns the identity id from context and true if set;
// otherwise "", false.
func IdentityID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(identityIDKey).(string)
	return v, ok
}
