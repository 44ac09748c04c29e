package shared

import "context"

// Identity is the request-scoped authenticated actor, reconstructed from a
// verified access token. It carries no database handle; the permission set is
// the snapshot embedded at issuance time.
type Identity struct {
	UserID      int64
	Username    string
	Role        string
	Permissions []string
}

// HasPermission reports whether the identity carries the named permission.
func (id *Identity) HasPermission(name string) bool {
	if id == nil {
		return false
	}
	for _, p := range id.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
