package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/beluma/warehouse-gateway/internal/audit"
	"github.com/beluma/warehouse-gateway/internal/authz"
	"github.com/beluma/warehouse-gateway/internal/warehouse"
)

// readGuard gates every warehouse read route.
var readGuard = authz.RequirePermission("read")

// targetScope picks the scope a request operates on. An explicit scope wins;
// otherwise the caller's primary scope, falling back to the deployment
// default for super admins without one.
func (s *Server) targetScope(id *authz.Identity, requested string) string {
	if requested != "" {
		return requested
	}
	if id.PrimaryScope != "" {
		return id.PrimaryScope
	}
	return s.defaultScope
}

// authorizeScope runs the read permission and scope guards for one request.
func authorizeScope(id *authz.Identity, scope string) error {
	return authz.CheckAll(id, readGuard, authz.RequireScopeAccess(scope))
}

// warehouseError maps warehouse sentinel failures onto client statuses.
// Anything unrecognized is reported as a bad gateway so the caller knows the
// failure is downstream of the gateway itself.
func warehouseError(err error) error {
	switch {
	case errors.Is(err, warehouse.ErrInvalidQuery):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, warehouse.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, warehouse.ErrForbidden):
		return huma.Error403Forbidden("warehouse rejected the request for this scope")
	default:
		slog.Error("warehouse call failed", "error", err)
		return huma.NewError(http.StatusBadGateway, "warehouse request failed")
	}
}

// registerQuery registers the warehouse passthrough routes.
func (s *Server) registerQuery(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "runQuery",
		Method:      http.MethodPost,
		Path:        "/api/query",
		Tags:        []string{"Warehouse"},
	}, func(ctx context.Context, input *QueryInput) (*QueryOutput, error) {
		id, err := authz.RequireIdentity(ctx)
		if err != nil {
			return nil, authError(err)
		}
		scope := s.targetScope(id, input.Body.Scope)
		if err := authorizeScope(id, scope); err != nil {
			return nil, authError(err)
		}
		if err := warehouse.ValidateReadOnly(input.Body.Query); err != nil {
			return nil, warehouseError(err)
		}

		req := warehouse.QueryRequest{
			SQL:      input.Body.Query,
			Scope:    scope,
			UseCache: true,
			DryRun:   input.Body.DryRun,
			Timeout:  s.queryTimeout,
		}
		if input.Body.MaxResults > 0 {
			req.MaxResults = input.Body.MaxResults
		}
		if input.Body.TimeoutSec > 0 {
			if d := time.Duration(input.Body.TimeoutSec) * time.Second; d < s.queryTimeout {
				req.Timeout = d
			}
		}
		if input.Body.UseCache != nil {
			req.UseCache = *input.Body.UseCache
		}

		qctx, cancel := context.WithTimeout(ctx, req.Timeout)
		defer cancel()

		start := time.Now()
		res, err := s.wh.Query(qctx, req)
		if err != nil {
			return nil, warehouseError(err)
		}

		audit.Event{
			Actor:  id.SubjectID,
			Tenant: id.TenantID,
			Scope:  scope,
			Action: "warehouse.query",
			Status: "executed",
			Extra: []any{
				slog.String("job_id", res.JobID),
				slog.Uint64("rows", res.TotalRows),
				slog.Bool("cache_hit", res.CacheHit),
				slog.Bool("dry_run", input.Body.DryRun),
			},
		}.Info("Audit Log: Warehouse Query")

		out := &QueryOutput{}
		out.Body.Scope = scope
		out.Body.Rows = res.Rows
		out.Body.TotalRows = res.TotalRows
		out.Body.BytesProcessed = res.BytesProcessed
		out.Body.ExecutionMS = time.Since(start).Milliseconds()
		out.Body.JobID = res.JobID
		out.Body.CacheHit = res.CacheHit
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listDatasets",
		Method:      http.MethodGet,
		Path:        "/api/datasets",
		Tags:        []string{"Warehouse"},
	}, func(ctx context.Context, input *DatasetsInput) (*DatasetsOutput, error) {
		id, err := authz.RequireIdentity(ctx)
		if err != nil {
			return nil, authError(err)
		}
		scope := s.targetScope(id, input.Scope)
		if err := authorizeScope(id, scope); err != nil {
			return nil, authError(err)
		}

		qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		datasets, err := s.wh.ListDatasets(qctx, scope)
		if err != nil {
			return nil, warehouseError(err)
		}

		out := &DatasetsOutput{}
		out.Body.Scope = scope
		out.Body.Datasets = make([]DatasetView, 0, len(datasets))
		for _, d := range datasets {
			out.Body.Datasets = append(out.Body.Datasets, DatasetView{
				ID:       d.ID,
				Scope:    d.Scope,
				Location: d.Location,
			})
		}
		out.Body.Count = len(out.Body.Datasets)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listTables",
		Method:      http.MethodGet,
		Path:        "/api/datasets/{dataset}/tables",
		Tags:        []string{"Warehouse"},
	}, func(ctx context.Context, input *TablesInput) (*TablesOutput, error) {
		id, err := authz.RequireIdentity(ctx)
		if err != nil {
			return nil, authError(err)
		}
		scope := s.targetScope(id, input.Scope)
		if err := authorizeScope(id, scope); err != nil {
			return nil, authError(err)
		}

		qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		tables, err := s.wh.ListTables(qctx, scope, input.Dataset)
		if err != nil {
			return nil, warehouseError(err)
		}

		out := &TablesOutput{}
		out.Body.Scope = scope
		out.Body.Dataset = input.Dataset
		out.Body.Tables = make([]TableView, 0, len(tables))
		for _, t := range tables {
			out.Body.Tables = append(out.Body.Tables, TableView{
				ID:       t.ID,
				Dataset:  t.DatasetID,
				Scope:    t.Scope,
				Type:     t.Type,
				NumRows:  t.NumRows,
				NumBytes: t.NumBytes,
			})
		}
		out.Body.Count = len(out.Body.Tables)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getTableSchema",
		Method:      http.MethodGet,
		Path:        "/api/datasets/{dataset}/tables/{table}/schema",
		Tags:        []string{"Warehouse"},
	}, func(ctx context.Context, input *SchemaInput) (*SchemaOutput, error) {
		id, err := authz.RequireIdentity(ctx)
		if err != nil {
			return nil, authError(err)
		}
		scope := s.targetScope(id, input.Scope)
		if err := authorizeScope(id, scope); err != nil {
			return nil, authError(err)
		}

		qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		fields, err := s.wh.TableSchema(qctx, scope, input.Dataset, input.Table)
		if err != nil {
			return nil, warehouseError(err)
		}

		out := &SchemaOutput{}
		out.Body.Scope = scope
		out.Body.Dataset = input.Dataset
		out.Body.Table = input.Table
		out.Body.Fields = make([]SchemaFieldView, 0, len(fields))
		for _, f := range fields {
			out.Body.Fields = append(out.Body.Fields, SchemaFieldView{
				Name:        f.Name,
				Type:        f.Type,
				Mode:        f.Mode,
				Description: f.Description,
			})
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "previewTable",
		Method:      http.MethodGet,
		Path:        "/api/datasets/{dataset}/tables/{table}/preview",
		Tags:        []string{"Warehouse"},
	}, func(ctx context.Context, input *PreviewInput) (*PreviewOutput, error) {
		id, err := authz.RequireIdentity(ctx)
		if err != nil {
			return nil, authError(err)
		}
		scope := s.targetScope(id, input.Scope)
		if err := authorizeScope(id, scope); err != nil {
			return nil, authError(err)
		}

		limit := input.Limit
		if limit <= 0 {
			limit = 10
		}
		req := warehouse.QueryRequest{
			SQL:        fmt.Sprintf("SELECT * FROM `%s.%s.%s` LIMIT %d", scope, input.Dataset, input.Table, limit),
			Scope:      scope,
			MaxResults: limit,
			UseCache:   true,
			Timeout:    s.queryTimeout,
		}

		qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		res, err := s.wh.Query(qctx, req)
		if err != nil {
			return nil, warehouseError(err)
		}

		out := &PreviewOutput{}
		out.Body.Scope = scope
		out.Body.Dataset = input.Dataset
		out.Body.Table = input.Table
		out.Body.Rows = res.Rows
		out.Body.Count = len(res.Rows)
		return out, nil
	})
}
