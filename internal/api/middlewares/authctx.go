package middlewares

import (
	"context"

	"github.com/5w1tchy/lending-api/internal/access"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, id access.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller resolved by RequireAuth. The zero Identity
// (unauthenticated) is returned when none is attached.
func IdentityFrom(ctx context.Context) (access.Identity, bool) {
	v, ok := ctx.Value(identityKey{}).(access.Identity)
	return v, ok && access.IsAuthenticated(v)
}
