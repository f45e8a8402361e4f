package authz

import (
	"strings"
)

// superAdminPermissions is the full permission set granted on elevation.
var superAdminPermissions = []string{"read", "write", "admin"}

// SuperAdminPolicy decides, from a verified email's domain, whether a caller
// bypasses tenant resolution and receives elevated multi-scope access.
type SuperAdminPolicy struct {
	domains      map[string]struct{}
	adminScopes  []string
	defaultScope string
}

// NewSuperAdminPolicy builds a policy from the configured admin email
// domains and admin scope list. When adminScopes is empty, elevated
// identities fall back to the default resource scope.
func NewSuperAdminPolicy(domains, adminScopes []string, defaultScope string) *SuperAdminPolicy {
	return &SuperAdminPolicy{
		domains:      StringSet(domains),
		adminScopes:  adminScopes,
		defaultScope: defaultScope,
	}
}

// IsSuperAdmin reports whether the email's domain is in the configured set.
// Comparison is case-sensitive on the substring after the last "@"; an email
// with no "@" is never a super admin.
func (p *SuperAdminPolicy) IsSuperAdmin(email string) bool {
	i := strings.LastIndex(email, "@")
	if i < 0 {
		return false
	}
	_, ok := p.domains[email[i+1:]]
	return ok
}

// Elevate constructs an elevated identity directly from verified claims,
// with no directory lookup. EmailVerified is forced true: elevation is an
// administrative trust boundary, not a token-derived attribute.
func (p *SuperAdminPolicy) Elevate(claims *TokenClaims) *Identity {
	scopes := p.adminScopes
	if len(scopes) == 0 {
		scopes = []string{p.defaultScope}
	}
	return &Identity{
		SubjectID:     claims.SubjectID,
		Email:         claims.Email,
		EmailVerified: true,
		TenantID:      SuperAdminTenantID,
		TenantName:    "Platform Admin",
		PrimaryScope:  scopes[0],
		Scopes:        StringSet(scopes),
		Permissions:   StringSet(superAdminPermissions),
		SuperAdmin:    true,
	}
}
