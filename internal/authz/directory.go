package authz

import (
	"context"
	"log/slog"

	"github.com/beluma/warehouse-gateway/internal/storage"
)

// defaultPermissions is granted when a user record lists none.
var defaultPermissions = []string{"read"}

// DirectoryStore is the narrow view of the directory backend the resolver
// needs: two keyed point-lookups. Absent records are (nil, nil); any error
// is an infrastructure fault.
type DirectoryStore interface {
	GetUser(ctx context.Context, subjectID string) (*storage.UserRecord, error)
	GetTenant(ctx context.Context, tenantID string) (*storage.TenantRecord, error)
}

// Directory resolves a verified subject to tenant membership: user record,
// linked tenant record, bound resource scope, and permission set.
type Directory struct {
	store DirectoryStore
}

// NewDirectory creates a resolver over the given store.
func NewDirectory(store DirectoryStore) *Directory {
	return &Directory{store: store}
}

// Resolve performs the two-hop lookup (user -> tenant) and constructs the
// identity. Failure modes are kept distinct: not-found and misconfiguration
// are authorization outcomes; a store error is Unavailable and must never
// masquerade as "not found".
func (d *Directory) Resolve(ctx context.Context, claims *TokenClaims) (*Identity, error) {
	user, err := d.store.GetUser(ctx, claims.SubjectID)
	if err != nil {
		return nil, WrapError(KindUnavailable, err, "directory lookup failed")
	}
	if user == nil {
		return nil, NewError(KindUserNotFound, "no user record for subject %q", claims.SubjectID)
	}

	if user.TenantID == "" {
		return nil, NewError(KindTenantLinkMissing, "user %q has no tenant association", claims.SubjectID)
	}

	tenant, err := d.store.GetTenant(ctx, user.TenantID)
	if err != nil {
		return nil, WrapError(KindUnavailable, err, "directory lookup failed")
	}
	if tenant == nil {
		return nil, NewError(KindTenantNotFound, "tenant %q not found", user.TenantID)
	}

	// A tenant must never grant access to an unscoped resource.
	if tenant.ResourceScope == "" {
		return nil, NewError(KindTenantMisconfigured, "tenant %q has no resource scope bound", tenant.TenantID)
	}

	perms := user.Permissions
	if len(perms) == 0 {
		perms = defaultPermissions
	}

	slog.Debug("tenant resolved",
		"subject", claims.SubjectID,
		"tenant", tenant.TenantID,
		"scope", tenant.ResourceScope,
	)

	return &Identity{
		SubjectID:     claims.SubjectID,
		Email:         claims.Email,
		EmailVerified: user.EmailVerified || claims.EmailVerified,
		TenantID:      tenant.TenantID,
		TenantName:    tenant.Name,
		PrimaryScope:  tenant.ResourceScope,
		// Single scope by design: a tenant never spans resource scopes implicitly.
		Scopes:      StringSet([]string{tenant.ResourceScope}),
		Permissions: StringSet(perms),
		Metadata: TenantMetadata{
			Status:    tenant.Status,
			CreatedAt: tenant.CreatedAt,
			DatasetID: tenant.DatasetID,
		},
	}, nil
}
