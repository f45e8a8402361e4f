package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/beluma/warehouse-gateway/internal/audit"
	"github.com/beluma/warehouse-gateway/internal/authz"
	"github.com/beluma/warehouse-gateway/internal/storage"
)

// requireSuperAdmin gates the operator surface. Regular tenant permissions,
// including "admin", do not reach these routes.
func requireSuperAdmin(ctx context.Context) (*authz.Identity, error) {
	id, err := authz.RequireIdentity(ctx)
	if err != nil {
		return nil, authError(err)
	}
	if !id.SuperAdmin {
		return nil, authError(authz.NewError(authz.KindPermissionDenied, "super admin access required"))
	}
	return id, nil
}

// registerAdmin registers the operator routes for cache management and
// directory writes.
func (s *Server) registerAdmin(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "invalidateIdentityCache",
		Method:      http.MethodPost,
		Path:        "/api/admin/cache/invalidate",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *InvalidateInput) (*InvalidateOutput, error) {
		id, err := requireSuperAdmin(ctx)
		if err != nil {
			return nil, err
		}
		if !input.Body.All && input.Body.SubjectID == "" {
			return nil, huma.Error400BadRequest("either subjectId or all must be set")
		}

		out := &InvalidateOutput{}
		if input.Body.All {
			s.gateway.Cache().InvalidateAll()
			out.Body.Invalidated = true
		} else {
			out.Body.Invalidated = s.gateway.Cache().Invalidate(input.Body.SubjectID)
		}

		audit.Event{
			Actor:  id.SubjectID,
			Tenant: id.TenantID,
			Action: "cache.invalidate",
			Status: "executed",
			Extra: []any{
				slog.String("subject", input.Body.SubjectID),
				slog.Bool("all", input.Body.All),
			},
		}.Info("Audit Log: Cache Invalidated")
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getCacheStats",
		Method:      http.MethodGet,
		Path:        "/api/admin/cache/stats",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *struct{}) (*CacheStatsOutput, error) {
		if _, err := requireSuperAdmin(ctx); err != nil {
			return nil, err
		}
		stats := s.gateway.Cache().Stats()
		out := &CacheStatsOutput{}
		out.Body.Size = stats.Size
		out.Body.Capacity = stats.Capacity
		out.Body.TTLSeconds = int64(stats.TTL.Seconds())
		out.Body.Hits = stats.Hits
		out.Body.Misses = stats.Misses
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upsertUser",
		Method:      http.MethodPut,
		Path:        "/api/admin/users/{subjectID}",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *UpsertUserInput) (*UpsertOutput, error) {
		id, err := requireSuperAdmin(ctx)
		if err != nil {
			return nil, err
		}
		if input.Body.Email == "" || input.Body.TenantID == "" {
			return nil, huma.Error400BadRequest("email and tenantId are required")
		}

		rec := &storage.UserRecord{
			SubjectID:     input.SubjectID,
			Email:         input.Body.Email,
			EmailVerified: input.Body.EmailVerified,
			TenantID:      input.Body.TenantID,
			Permissions:   input.Body.Permissions,
		}
		if err := s.store.UpsertUser(ctx, rec); err != nil {
			return nil, huma.Error500InternalServerError("failed to store user record")
		}
		// Drop any cached identity so the change applies on the next request.
		s.gateway.Cache().Invalidate(input.SubjectID)

		audit.Event{
			Actor:  id.SubjectID,
			Tenant: id.TenantID,
			Action: "directory.upsert_user",
			Status: "executed",
			Extra: []any{
				slog.String("subject", input.SubjectID),
				slog.String("tenant", input.Body.TenantID),
			},
		}.Info("Audit Log: Directory Write")

		out := &UpsertOutput{}
		out.Body.Updated = true
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upsertTenant",
		Method:      http.MethodPut,
		Path:        "/api/admin/tenants/{tenantID}",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *UpsertTenantInput) (*UpsertOutput, error) {
		id, err := requireSuperAdmin(ctx)
		if err != nil {
			return nil, err
		}
		if input.Body.Name == "" || input.Body.ResourceScope == "" {
			return nil, huma.Error400BadRequest("name and resourceScope are required")
		}

		rec := &storage.TenantRecord{
			TenantID:      input.TenantID,
			Name:          input.Body.Name,
			ResourceScope: input.Body.ResourceScope,
			DatasetID:     input.Body.DatasetID,
			Status:        input.Body.Status,
		}
		if err := s.store.UpsertTenant(ctx, rec); err != nil {
			return nil, huma.Error500InternalServerError("failed to store tenant record")
		}
		// Tenant attributes feed many cached identities; drop them all.
		s.gateway.Cache().InvalidateAll()

		audit.Event{
			Actor:  id.SubjectID,
			Tenant: id.TenantID,
			Action: "directory.upsert_tenant",
			Status: "executed",
			Extra: []any{
				slog.String("tenant", input.TenantID),
				slog.String("scope", input.Body.ResourceScope),
			},
		}.Info("Audit Log: Directory Write")

		out := &UpsertOutput{}
		out.Body.Updated = true
		return out, nil
	})
}
