package auth

import (
	"context"

	"github.com/rhuss/stockroom/pkg/api"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the authenticated identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by the middleware,
// or nil for requests that never passed through it.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// CallerFromContext returns the caller for inventory operations. ok is
// false when the context holds no identity with a subject; handlers pass
// the zero Caller on and let the service reject it.
func CallerFromContext(ctx context.Context) (api.Caller, bool) {
	c := IdentityFromContext(ctx).Caller()
	return c, c.UserID != ""
}
