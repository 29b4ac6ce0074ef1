package accessservice

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Identity is the request-scoped caller identity resolved by the session
// middleware. It replaces any notion of process-global session state: every
// request carries its own identity and expiry, and the gate checks both.
type Identity struct {
	UserID    uuid.UUID
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the identity's session window has lapsed.
func (id Identity) Expired() bool {
	return time.Now().After(id.ExpiresAt)
}

type identityKey struct{}

// WithIdentity returns a context carrying the resolved identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity carried by ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
