package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/beluma/warehouse-gateway/internal/storage"
)

// fakeDirectoryStore serves canned records and counts lookups.
type fakeDirectoryStore struct {
	users   map[string]*storage.UserRecord
	tenants map[string]*storage.TenantRecord
	err     error

	userCalls   int
	tenantCalls int
}

func (f *fakeDirectoryStore) GetUser(_ context.Context, subjectID string) (*storage.UserRecord, error) {
	f.userCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.users[subjectID], nil
}

func (f *fakeDirectoryStore) GetTenant(_ context.Context, tenantID string) (*storage.TenantRecord, error) {
	f.tenantCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tenants[tenantID], nil
}

func newFakeDirectoryStore() *fakeDirectoryStore {
	return &fakeDirectoryStore{
		users: map[string]*storage.UserRecord{
			"u1": {SubjectID: "u1", Email: "user@tenant.com", EmailVerified: true, TenantID: "t1", Permissions: []string{"read", "write"}},
			"u2": {SubjectID: "u2", Email: "bare@tenant.com"},
			"u3": {SubjectID: "u3", Email: "lost@tenant.com", TenantID: "t-gone"},
			"u4": {SubjectID: "u4", Email: "broken@tenant.com", TenantID: "t-broken"},
			"u5": {SubjectID: "u5", Email: "minimal@tenant.com", TenantID: "t1"},
		},
		tenants: map[string]*storage.TenantRecord{
			"t1":       {TenantID: "t1", Name: "Tenant One", ResourceScope: "proj-42", DatasetID: "analytics", Status: "active"},
			"t-broken": {TenantID: "t-broken", Name: "Broken", ResourceScope: ""},
		},
	}
}

func TestDirectoryResolve(t *testing.T) {
	store := newFakeDirectoryStore()
	d := NewDirectory(store)

	id, err := d.Resolve(context.Background(), &TokenClaims{SubjectID: "u1", Email: "user@tenant.com"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.TenantID != "t1" || id.TenantName != "Tenant One" {
		t.Fatalf("unexpected tenant: %+v", id)
	}
	if id.PrimaryScope != "proj-42" {
		t.Fatalf("expected proj-42, got %q", id.PrimaryScope)
	}
	if !id.CanAccessScope("proj-42") || id.CanAccessScope("proj-99") {
		t.Fatal("identity must access exactly its tenant's scope")
	}
	if !id.HasPermission("write") || id.HasPermission("admin") {
		t.Fatal("permissions must come from the user record")
	}
	if id.SuperAdmin {
		t.Fatal("directory resolution never elevates")
	}
	if id.Metadata.DatasetID != "analytics" || id.Metadata.Status != "active" {
		t.Fatalf("unexpected metadata: %+v", id.Metadata)
	}
}

func TestDirectoryResolveDefaultPermissions(t *testing.T) {
	d := NewDirectory(newFakeDirectoryStore())

	id, err := d.Resolve(context.Background(), &TokenClaims{SubjectID: "u5"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !id.HasPermission("read") {
		t.Fatal("empty permission list must default to read")
	}
	if id.HasPermission("write") {
		t.Fatal("default must grant read only")
	}
}

func TestDirectoryResolveFailureKinds(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		kind    Kind
	}{
		{"unknown subject", "nobody", KindUserNotFound},
		{"no tenant link", "u2", KindTenantLinkMissing},
		{"tenant missing", "u3", KindTenantNotFound},
		{"tenant without scope", "u4", KindTenantMisconfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDirectory(newFakeDirectoryStore())
			_, err := d.Resolve(context.Background(), &TokenClaims{SubjectID: tt.subject})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := KindOf(err); got != tt.kind {
				t.Fatalf("expected %s, got %s (%v)", tt.kind, got, err)
			}
		})
	}
}

func TestDirectoryResolveStoreFault(t *testing.T) {
	store := newFakeDirectoryStore()
	store.err = errors.New("database is locked")
	d := NewDirectory(store)

	_, err := d.Resolve(context.Background(), &TokenClaims{SubjectID: "u1"})
	if !IsKind(err, KindUnavailable) {
		t.Fatalf("store fault must surface as unavailable, got %v", err)
	}
	// The fault must never look like an absent record.
	if IsKind(err, KindUserNotFound) {
		t.Fatal("store fault conflated with user_not_found")
	}
}
