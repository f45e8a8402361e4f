package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite in WAL mode.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at path with WAL mode
// enabled.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection avoids "database is locked" errors with this driver.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    subject_id TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    email_verified INTEGER NOT NULL DEFAULT 0,
    tenant_id TEXT NOT NULL DEFAULT '',
    permissions TEXT NOT NULL DEFAULT '[]',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tenants (
    tenant_id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    resource_scope TEXT NOT NULL DEFAULT '',
    dataset_id TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_tenant ON users(tenant_id);
`

// GetUser returns the user record for subjectID, or (nil, nil) if absent.
func (s *SQLiteStore) GetUser(ctx context.Context, subjectID string) (*UserRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT subject_id, email, email_verified, tenant_id, permissions, created_at, updated_at
		 FROM users WHERE subject_id = ?`, subjectID)

	var u UserRecord
	var verified int
	var permsJSON string
	var created, updated int64
	err := row.Scan(&u.SubjectID, &u.Email, &verified, &u.TenantID, &permsJSON, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.EmailVerified = verified != 0
	if err := json.Unmarshal([]byte(permsJSON), &u.Permissions); err != nil {
		return nil, fmt.Errorf("decode permissions for %s: %w", subjectID, err)
	}
	u.CreatedAt = time.Unix(created, 0)
	u.UpdatedAt = time.Unix(updated, 0)
	return &u, nil
}

// GetTenant returns the tenant record for tenantID, or (nil, nil) if absent.
func (s *SQLiteStore) GetTenant(ctx context.Context, tenantID string) (*TenantRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT tenant_id, name, resource_scope, dataset_id, status, created_at, updated_at
		 FROM tenants WHERE tenant_id = ?`, tenantID)

	var t TenantRecord
	var created, updated int64
	err := row.Scan(&t.TenantID, &t.Name, &t.ResourceScope, &t.DatasetID, &t.Status, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	t.CreatedAt = time.Unix(created, 0)
	t.UpdatedAt = time.Unix(updated, 0)
	return &t, nil
}

// UpsertUser inserts or replaces a user record, preserving created_at on
// update.
func (s *SQLiteStore) UpsertUser(ctx context.Context, u *UserRecord) error {
	perms := u.Permissions
	if perms == nil {
		perms = []string{}
	}
	permsJSON, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	now := time.Now().Unix()
	verified := 0
	if u.EmailVerified {
		verified = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (subject_id, email, email_verified, tenant_id, permissions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(subject_id) DO UPDATE SET
		   email = excluded.email,
		   email_verified = excluded.email_verified,
		   tenant_id = excluded.tenant_id,
		   permissions = excluded.permissions,
		   updated_at = excluded.updated_at`,
		u.SubjectID, u.Email, verified, u.TenantID, string(permsJSON), now, now)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpsertTenant inserts or replaces a tenant record, preserving created_at on
// update.
func (s *SQLiteStore) UpsertTenant(ctx context.Context, t *TenantRecord) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (tenant_id, name, resource_scope, dataset_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(tenant_id) DO UPDATE SET
		   name = excluded.name,
		   resource_scope = excluded.resource_scope,
		   dataset_id = excluded.dataset_id,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		t.TenantID, t.Name, t.ResourceScope, t.DatasetID, t.Status, now, now)
	if err != nil {
		return fmt.Errorf("upsert tenant: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable. Used by the readiness probe.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ Store = (*SQLiteStore)(nil)
