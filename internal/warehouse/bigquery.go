package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// BigQueryClient implements Client over the BigQuery REST API using
// application default credentials.
type BigQueryClient struct {
	svc        *bigquery.Service
	maxResults int64
	jobTimeout int64 // milliseconds handed to jobs.query
	pingScope  string
}

// BigQueryConfig tunes the client. Zero values fall back to sane defaults.
type BigQueryConfig struct {
	MaxResults int64  // hard cap on rows returned per query
	JobTimeout int64  // per-job timeout in milliseconds
	PingScope  string // project used by Ping reachability checks
}

// NewBigQueryClient creates a client authenticated via ADC.
func NewBigQueryClient(ctx context.Context, cfg BigQueryConfig, opts ...option.ClientOption) (*BigQueryClient, error) {
	svc, err := bigquery.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery service: %w", err)
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10000
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 300_000
	}
	return &BigQueryClient{svc: svc, maxResults: maxResults, jobTimeout: jobTimeout, pingScope: cfg.PingScope}, nil
}

// Ping issues a cheap list call against the ping scope. Any response carrying
// a googleapi status still proves the service answered, so only transport
// failures count as unreachable.
func (c *BigQueryClient) Ping(ctx context.Context) error {
	_, err := c.svc.Datasets.List(c.pingScope).MaxResults(1).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil
		}
		return fmt.Errorf("ping warehouse: %w", err)
	}
	return nil
}

// Query runs a synchronous query job in the given scope.
func (c *BigQueryClient) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if err := ValidateReadOnly(req.SQL); err != nil {
		return nil, err
	}

	maxResults := req.MaxResults
	if maxResults <= 0 || maxResults > c.maxResults {
		maxResults = c.maxResults
	}
	timeoutMs := c.jobTimeout
	if req.Timeout > 0 {
		timeoutMs = req.Timeout.Milliseconds()
	}

	useLegacy := false
	qr := &bigquery.QueryRequest{
		Query:         req.SQL,
		MaxResults:    maxResults,
		TimeoutMs:     timeoutMs,
		UseQueryCache: &req.UseCache,
		DryRun:        req.DryRun,
		UseLegacySql:  &useLegacy,
	}

	resp, err := c.svc.Jobs.Query(req.Scope, qr).Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleAPIError(err)
	}

	result := &QueryResult{
		TotalRows:      resp.TotalRows,
		BytesProcessed: resp.TotalBytesProcessed,
		CacheHit:       resp.CacheHit,
	}
	if resp.JobReference != nil {
		result.JobID = resp.JobReference.JobId
	}
	if req.DryRun {
		return result, nil
	}
	if !resp.JobComplete {
		return nil, fmt.Errorf("query job %s did not complete within %dms", result.JobID, timeoutMs)
	}
	result.Rows = decodeRows(resp.Schema, resp.Rows)
	if result.TotalRows == 0 {
		result.TotalRows = uint64(len(result.Rows))
	}
	return result, nil
}

// ListDatasets lists the datasets visible in the scope.
func (c *BigQueryClient) ListDatasets(ctx context.Context, scope string) ([]Dataset, error) {
	resp, err := c.svc.Datasets.List(scope).Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleAPIError(err)
	}
	out := make([]Dataset, 0, len(resp.Datasets))
	for _, d := range resp.Datasets {
		ds := Dataset{Scope: scope, Location: d.Location}
		if d.DatasetReference != nil {
			ds.ID = d.DatasetReference.DatasetId
		}
		out = append(out, ds)
	}
	return out, nil
}

// ListTables lists the tables in a dataset.
func (c *BigQueryClient) ListTables(ctx context.Context, scope, dataset string) ([]Table, error) {
	resp, err := c.svc.Tables.List(scope, dataset).Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleAPIError(err)
	}
	out := make([]Table, 0, len(resp.Tables))
	for _, t := range resp.Tables {
		tbl := Table{DatasetID: dataset, Scope: scope, Type: t.Type}
		if t.TableReference != nil {
			tbl.ID = t.TableReference.TableId
		}
		// tables.list omits row and byte counts, so fetch each table
		// individually. A failed lookup leaves the counts at zero rather
		// than failing the whole listing.
		if tbl.ID != "" {
			if full, err := c.svc.Tables.Get(scope, dataset, tbl.ID).Context(ctx).Do(); err == nil {
				tbl.NumRows = full.NumRows
				tbl.NumBytes = full.NumBytes
			}
		}
		out = append(out, tbl)
	}
	return out, nil
}

// TableSchema fetches the column schema for one table.
func (c *BigQueryClient) TableSchema(ctx context.Context, scope, dataset, table string) ([]SchemaField, error) {
	t, err := c.svc.Tables.Get(scope, dataset, table).Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleAPIError(err)
	}
	if t.Schema == nil {
		return nil, nil
	}
	out := make([]SchemaField, 0, len(t.Schema.Fields))
	for _, f := range t.Schema.Fields {
		out = append(out, SchemaField{
			Name:        f.Name,
			Type:        f.Type,
			Mode:        f.Mode,
			Description: f.Description,
		})
	}
	return out, nil
}

// decodeRows zips the response schema with the positional row cells.
func decodeRows(schema *bigquery.TableSchema, rows []*bigquery.TableRow) []map[string]any {
	if schema == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]any, len(schema.Fields))
		for i, cell := range row.F {
			if i >= len(schema.Fields) {
				break
			}
			m[schema.Fields[i].Name] = cell.V
		}
		out = append(out, m)
	}
	return out
}

// mapGoogleAPIError converts googleapi status codes to the package's
// sentinel errors so the API layer never inspects provider errors directly.
func mapGoogleAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, gerr.Message)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", ErrInvalidQuery, gerr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrForbidden, gerr.Message)
		}
	}
	return err
}

var _ Client = (*BigQueryClient)(nil)
