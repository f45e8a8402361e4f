// Package warehouse wraps the analytical data backend consumed by the query
// endpoints. The gateway decides which resource scope a caller may query
// before any method here runs; this package contributes no authorization
// logic of its own.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// QueryRequest describes a read-only SQL query against one resource scope.
type QueryRequest struct {
	SQL        string
	Scope      string // target cloud project
	MaxResults int64
	Timeout    time.Duration
	UseCache   bool
	DryRun     bool
}

// QueryResult holds the rows and job statistics for a completed query.
type QueryResult struct {
	Rows           []map[string]any
	TotalRows      uint64
	BytesProcessed int64
	JobID          string
	CacheHit       bool
}

// Dataset describes one dataset within a resource scope.
type Dataset struct {
	ID       string
	Scope    string
	Location string
}

// Table describes one table within a dataset.
type Table struct {
	ID        string
	DatasetID string
	Scope     string
	Type      string
	NumRows   uint64
	NumBytes  int64
}

// SchemaField describes one column of a table schema.
type SchemaField struct {
	Name        string
	Type        string
	Mode        string
	Description string
}

// Client is the warehouse interface the API layer consumes.
type Client interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResult, error)
	ListDatasets(ctx context.Context, scope string) ([]Dataset, error)
	ListTables(ctx context.Context, scope, dataset string) ([]Table, error)
	TableSchema(ctx context.Context, scope, dataset, table string) ([]SchemaField, error)

	// Ping reports whether the warehouse is reachable. Used by the
	// readiness endpoint.
	Ping(ctx context.Context) error
}

// Sentinel errors the API layer maps to client-facing statuses.
var (
	ErrNotFound     = errors.New("warehouse object not found")
	ErrInvalidQuery = errors.New("invalid query")
	ErrForbidden    = errors.New("warehouse access forbidden")
)

// mutationKeywords are rejected up front: this service only serves analytics
// reads, and the underlying service account may hold broader rights.
var mutationKeywords = []string{
	"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE", "INSERT", "UPDATE", "MERGE",
}

// ValidateReadOnly rejects empty statements and statements containing
// mutation keywords. Matching is keyword-token based on the uppercased SQL.
func ValidateReadOnly(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}
	upper := strings.ToUpper(trimmed)
	for _, kw := range mutationKeywords {
		if containsKeyword(upper, kw) {
			return fmt.Errorf("%w: statement contains forbidden keyword %s", ErrInvalidQuery, kw)
		}
	}
	return nil
}

// containsKeyword reports whether kw appears as a standalone word in s.
func containsKeyword(s, kw string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordByte(s[start-1])
		afterOK := end == len(s) || !isWordByte(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
