package auth

import "context"

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the authenticated web user.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the web user stored by the auth middleware, or nil
// outside an authenticated route.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
