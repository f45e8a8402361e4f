package authz

import (
	"context"
	"time"
)

// SuperAdminTenantID is the sentinel tenant id assigned to elevated
// identities. It is distinct from every real tenant id so tenant-keyed
// caches and logs never collide with a real tenant.
const SuperAdminTenantID = "super-admin"

// TenantMetadata carries informational tenant attributes. It is never
// consulted for access decisions.
type TenantMetadata struct {
	Status    string
	CreatedAt time.Time
	DatasetID string // analytical dataset bound to the tenant
}

// Identity is the resolved output of authentication plus tenant resolution.
// It is constructed once per resolution, cached by subject id, and attached
// read-only to request contexts. Never mutate an Identity after construction;
// a cache hit hands the same value to many concurrent requests.
type Identity struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	TenantID      string
	TenantName    string
	PrimaryScope  string              // default resource scope for the tenant
	Scopes        map[string]struct{} // accessible resource scopes, never empty
	Permissions   map[string]struct{}
	SuperAdmin    bool
	Metadata      TenantMetadata
}

// CanAccessScope reports whether the identity may operate on the given
// resource scope. Super-admin is a universal bypass, not a large allow-list.
func (id *Identity) CanAccessScope(scope string) bool {
	if id.SuperAdmin {
		return true
	}
	_, ok := id.Scopes[scope]
	return ok
}

// HasPermission reports whether the identity holds the given permission.
func (id *Identity) HasPermission(perm string) bool {
	if id.SuperAdmin {
		return true
	}
	_, ok := id.Permissions[perm]
	return ok
}

// ScopeList returns the accessible scopes as a slice for serialization.
func (id *Identity) ScopeList() []string {
	out := make([]string, 0, len(id.Scopes))
	for s := range id.Scopes {
		out = append(out, s)
	}
	return out
}

// PermissionList returns the permission set as a slice for serialization.
func (id *Identity) PermissionList() []string {
	out := make([]string, 0, len(id.Permissions))
	for p := range id.Permissions {
		out = append(out, p)
	}
	return out
}

// StringSet builds a membership set from a slice.
func StringSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}

type contextKey struct{}

// WithIdentity stores the resolved identity in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext retrieves the resolved identity from the context.
// Returns nil if no identity is set.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(contextKey{}).(*Identity)
	return id
}

// RequireIdentity returns the identity on the context, or an
// Unauthenticated error if the gateway never attached one. Handlers on
// protected routes use this instead of trusting middleware ordering.
func RequireIdentity(ctx context.Context) (*Identity, error) {
	id := IdentityFromContext(ctx)
	if id == nil {
		return nil, NewError(KindUnauthenticated, "no identity on request")
	}
	return id, nil
}
