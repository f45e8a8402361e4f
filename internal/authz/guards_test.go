package authz

import "testing"

func tenantIdentity() *Identity {
	return &Identity{
		SubjectID:    "u1",
		TenantID:     "t1",
		PrimaryScope: "proj-42",
		Scopes:       StringSet([]string{"proj-42"}),
		Permissions:  StringSet([]string{"read"}),
	}
}

func TestPermissionGuard(t *testing.T) {
	id := tenantIdentity()

	if err := RequirePermission("read").Check(id); err != nil {
		t.Fatalf("expected read to pass: %v", err)
	}
	err := RequirePermission("write").Check(id)
	if !IsKind(err, KindPermissionDenied) {
		t.Fatalf("expected permission_denied, got %v", err)
	}
}

func TestScopeGuard(t *testing.T) {
	id := tenantIdentity()

	if err := RequireScopeAccess("proj-42").Check(id); err != nil {
		t.Fatalf("expected own scope to pass: %v", err)
	}
	err := RequireScopeAccess("proj-99").Check(id)
	if !IsKind(err, KindScopeAccessDenied) {
		t.Fatalf("expected scope_access_denied, got %v", err)
	}
}

func TestGuardsSuperAdminBypass(t *testing.T) {
	id := &Identity{SubjectID: "admin-1", TenantID: SuperAdminTenantID, SuperAdmin: true}

	if err := RequirePermission("admin").Check(id); err != nil {
		t.Fatalf("expected bypass: %v", err)
	}
	if err := RequireScopeAccess("proj-anything").Check(id); err != nil {
		t.Fatalf("expected bypass: %v", err)
	}
}

func TestGuardsNilIdentity(t *testing.T) {
	if err := RequirePermission("read").Check(nil); !IsKind(err, KindUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if err := RequireScopeAccess("proj-42").Check(nil); !IsKind(err, KindUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestCheckAllStopsAtFirstFailure(t *testing.T) {
	id := tenantIdentity()

	if err := CheckAll(id, RequirePermission("read"), RequireScopeAccess("proj-42")); err != nil {
		t.Fatalf("expected all guards to pass: %v", err)
	}

	err := CheckAll(id, RequirePermission("write"), RequireScopeAccess("proj-99"))
	if !IsKind(err, KindPermissionDenied) {
		t.Fatalf("expected first failure (permission_denied), got %v", err)
	}
}
