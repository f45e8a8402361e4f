package warehouse

import (
	"errors"
	"net/http"
	"testing"

	"google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
)

func TestValidateReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr bool
	}{
		{"plain select", "SELECT id, amount FROM billing.invoices", false},
		{"lowercase select", "select * from events limit 10", false},
		{"empty", "", true},
		{"whitespace only", "   \n\t", true},
		{"drop table", "DROP TABLE billing.invoices", true},
		{"lowercase delete", "delete from events where id = 1", true},
		{"insert", "INSERT INTO events VALUES (1)", true},
		{"merge", "MERGE INTO t USING s ON t.id = s.id", true},
		{"keyword inside identifier", "SELECT updated_at, created_by FROM events", false},
		{"keyword as column suffix", "SELECT last_update FROM events", false},
		{"keyword after parenthesis", "SELECT 1 FROM x WHERE (DELETE) IS NULL", true},
		{"cte is fine", "WITH recent AS (SELECT * FROM events) SELECT * FROM recent", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReadOnly(tt.sql)
			if tt.wantErr && !errors.Is(err, ErrInvalidQuery) {
				t.Fatalf("expected ErrInvalidQuery, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
		})
	}
}

func TestMapGoogleAPIError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusBadRequest, ErrInvalidQuery},
		{http.StatusForbidden, ErrForbidden},
	}
	for _, tt := range tests {
		err := mapGoogleAPIError(&googleapi.Error{Code: tt.code, Message: "boom"})
		if !errors.Is(err, tt.want) {
			t.Fatalf("code %d: expected %v, got %v", tt.code, tt.want, err)
		}
	}

	// Unknown codes and foreign errors pass through untouched.
	raw := errors.New("connection reset")
	if got := mapGoogleAPIError(raw); got != raw {
		t.Fatalf("expected passthrough, got %v", got)
	}
	teapot := mapGoogleAPIError(&googleapi.Error{Code: http.StatusTeapot})
	if errors.Is(teapot, ErrNotFound) || errors.Is(teapot, ErrInvalidQuery) || errors.Is(teapot, ErrForbidden) {
		t.Fatalf("unexpected mapping for unknown code: %v", teapot)
	}
}

func TestDecodeRows(t *testing.T) {
	schema := &bigquery.TableSchema{
		Fields: []*bigquery.TableFieldSchema{
			{Name: "id", Type: "INTEGER"},
			{Name: "name", Type: "STRING"},
		},
	}
	rows := []*bigquery.TableRow{
		{F: []*bigquery.TableCell{{V: "1"}, {V: "alpha"}}},
		{F: []*bigquery.TableCell{{V: "2"}, {V: "beta"}}},
	}

	out := decodeRows(schema, rows)
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if out[0]["id"] != "1" || out[0]["name"] != "alpha" {
		t.Fatalf("unexpected first row: %v", out[0])
	}
	if out[1]["name"] != "beta" {
		t.Fatalf("unexpected second row: %v", out[1])
	}
}

func TestDecodeRowsNilSchema(t *testing.T) {
	if out := decodeRows(nil, []*bigquery.TableRow{{}}); out != nil {
		t.Fatalf("expected nil for nil schema, got %v", out)
	}
}

func TestDecodeRowsExtraCells(t *testing.T) {
	schema := &bigquery.TableSchema{
		Fields: []*bigquery.TableFieldSchema{{Name: "id", Type: "INTEGER"}},
	}
	rows := []*bigquery.TableRow{
		{F: []*bigquery.TableCell{{V: "1"}, {V: "orphan"}}},
	}

	out := decodeRows(schema, rows)
	if len(out) != 1 || len(out[0]) != 1 {
		t.Fatalf("cells beyond the schema must be dropped: %v", out)
	}
}
