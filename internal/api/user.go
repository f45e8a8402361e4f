package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/beluma/warehouse-gateway/internal/authz"
)

// registerUser registers the identity introspection route.
func (s *Server) registerUser(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/user",
		Tags:        []string{"Identity"},
	}, func(ctx context.Context, input *struct{}) (*UserOutput, error) {
		id, err := authz.RequireIdentity(ctx)
		if err != nil {
			return nil, authError(err)
		}

		scopes := id.ScopeList()
		sort.Strings(scopes)
		perms := id.PermissionList()
		sort.Strings(perms)

		out := &UserOutput{}
		out.Body.SubjectID = id.SubjectID
		out.Body.Email = id.Email
		out.Body.EmailVerified = id.EmailVerified
		out.Body.TenantID = id.TenantID
		out.Body.TenantName = id.TenantName
		out.Body.PrimaryScope = id.PrimaryScope
		out.Body.Scopes = scopes
		out.Body.Permissions = perms
		out.Body.SuperAdmin = id.SuperAdmin
		return out, nil
	})
}
