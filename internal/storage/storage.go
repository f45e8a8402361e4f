package storage

import (
	"context"
	"time"
)

// UserRecord is the directory's view of a platform user. The gateway treats
// it as externally owned: fetched fresh on every cache miss, never cached
// longer than the identity it produces.
type UserRecord struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	TenantID      string // empty = no tenant association
	Permissions   []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TenantRecord is the directory's view of a tenant (company) and its cloud
// resource binding.
type TenantRecord struct {
	TenantID      string
	Name          string
	ResourceScope string // cloud project the tenant's data lives in; empty = misconfigured
	DatasetID     string // analytical dataset binding, informational
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Store is the directory storage interface: two keyed point-lookups plus the
// upserts operators use to manage tenancy records. Absent records return
// (nil, nil); a non-nil error always means an infrastructure fault.
type Store interface {
	GetUser(ctx context.Context, subjectID string) (*UserRecord, error)
	GetTenant(ctx context.Context, tenantID string) (*TenantRecord, error)

	UpsertUser(ctx context.Context, u *UserRecord) error
	UpsertTenant(ctx context.Context, t *TenantRecord) error

	Ping(ctx context.Context) error
	Close() error
}
