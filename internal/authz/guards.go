package authz

// PermissionGuard requires a specific permission on the resolved identity.
// Guards are small values constructed once per route registration, not per
// request.
type PermissionGuard struct {
	Permission string
}

// RequirePermission builds a guard for the given permission string.
func RequirePermission(permission string) PermissionGuard {
	return PermissionGuard{Permission: permission}
}

// Check passes iff the identity is a super admin or holds the permission.
func (g PermissionGuard) Check(id *Identity) error {
	if id == nil {
		return NewError(KindUnauthenticated, "no identity on request")
	}
	if id.HasPermission(g.Permission) {
		return nil
	}
	return NewError(KindPermissionDenied, "permission required: %s", g.Permission)
}

// ScopeGuard requires access to a specific resource scope.
type ScopeGuard struct {
	Scope string
}

// RequireScopeAccess builds a guard for the given resource scope.
func RequireScopeAccess(scope string) ScopeGuard {
	return ScopeGuard{Scope: scope}
}

// Check passes iff the identity is a super admin or the scope is in its
// accessible set.
func (g ScopeGuard) Check(id *Identity) error {
	if id == nil {
		return NewError(KindUnauthenticated, "no identity on request")
	}
	if id.CanAccessScope(g.Scope) {
		return nil
	}
	return NewError(KindScopeAccessDenied, "access denied to scope: %s", g.Scope)
}

// Guard is the common predicate interface both guard families satisfy, so
// routes can compose them.
type Guard interface {
	Check(id *Identity) error
}

// CheckAll evaluates guards in order and returns the first failure.
func CheckAll(id *Identity, guards ...Guard) error {
	for _, g := range guards {
		if err := g.Check(id); err != nil {
			return err
		}
	}
	return nil
}
