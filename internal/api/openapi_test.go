package api

import (
	stdjson "encoding/json"
	"net/http"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/require"
)

// TestOpenAPIDocumentValid loads the generated document with an independent
// OpenAPI toolchain to catch schema regressions the generator itself would
// not notice.
func TestOpenAPIDocumentValid(t *testing.T) {
	env := newTestEnv(t)

	// kin-openapi validates 3.0.x, so downgrade the generated 3.1 document.
	data, err := env.server.humaAPI.OpenAPI().Downgrade()
	require.NoError(t, err)

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(loader.Context))

	for _, path := range []string{
		"/api/query",
		"/api/datasets",
		"/api/datasets/{dataset}/tables",
		"/api/datasets/{dataset}/tables/{table}/schema",
		"/api/datasets/{dataset}/tables/{table}/preview",
		"/api/user",
		"/api/admin/cache/invalidate",
		"/api/admin/cache/stats",
		"/api/admin/users/{subjectID}",
		"/api/admin/tenants/{tenantID}",
		"/healthz",
		"/readyz",
	} {
		require.NotNil(t, doc.Paths.Find(path), "missing path %s", path)
	}
}

func TestOpenAPIEndpointServesJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/openapi", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc map[string]any
	require.NoError(t, stdjson.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, "Warehouse Gateway API", doc["info"].(map[string]any)["title"])
}
