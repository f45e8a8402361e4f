package api

import (
	"context"
	stdjson "encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/beluma/warehouse-gateway/internal/audit"
	"github.com/beluma/warehouse-gateway/internal/authz"
	"github.com/beluma/warehouse-gateway/internal/storage"
	"github.com/beluma/warehouse-gateway/internal/warehouse"
)

// Server is the HTTP API server. It owns no authorization logic itself: the
// gateway decides, the server routes.
type Server struct {
	gateway      *authz.Gateway
	store        storage.Store
	wh           warehouse.Client
	defaultScope string
	publicPaths  []string
	queryTimeout time.Duration
	humaAPI      huma.API
}

// ServerOption configures the API server.
type ServerOption func(*Server)

// WithPublicPaths sets the paths that bypass the authentication gate.
func WithPublicPaths(paths []string) ServerOption {
	return func(s *Server) { s.publicPaths = paths }
}

// WithQueryTimeout bounds warehouse passthrough calls.
func WithQueryTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.queryTimeout = d }
}

// NewServer creates a new API server.
func NewServer(gateway *authz.Gateway, store storage.Store, wh warehouse.Client, defaultScope string, opts ...ServerOption) *Server {
	s := &Server{
		gateway:      gateway,
		store:        store,
		wh:           wh,
		defaultScope: defaultScope,
		publicPaths:  []string{"/", "/healthz", "/readyz", "/metrics", "/api/openapi"},
		queryTimeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// humaJSONFormat uses stdlib encoding/json for huma request/response
// serialization.
var humaJSONFormat = huma.Format{
	Marshal: func(w io.Writer, v any) error {
		return stdjson.NewEncoder(w).Encode(v)
	},
	Unmarshal: stdjson.Unmarshal,
}

// newHumaConfig creates the huma configuration for the API.
func newHumaConfig() huma.Config {
	registry := huma.NewMapRegistry("#/components/schemas/", huma.DefaultSchemaNamer)
	config := huma.Config{
		OpenAPI: &huma.OpenAPI{
			OpenAPI: "3.1.0",
			Info: &huma.Info{
				Title:   "Warehouse Gateway API",
				Version: "1.0.0",
			},
			Components: &huma.Components{
				Schemas: registry,
			},
		},
		OpenAPIPath:   "", // Served via our own route.
		DocsPath:      "",
		SchemasPath:   "",
		Formats:       map[string]huma.Format{"application/json": humaJSONFormat, "json": humaJSONFormat},
		DefaultFormat: "application/json",
	}
	return config
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Router returns the configured HTTP handler with all endpoints.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	api := humago.New(mux, newHumaConfig())
	api.UseMiddleware(metricsHumaMiddleware)
	api.UseMiddleware(rootPathGuard(api))
	api.UseMiddleware(s.authHumaMiddleware(api))
	api.UseMiddleware(auditHumaMiddleware)
	s.humaAPI = api

	s.registerHealth(api)
	s.registerOpenAPI(api)
	s.registerQuery(api)
	s.registerUser(api)
	s.registerAdmin(api)

	// HTTP-level middleware (outermost applied last).
	var handler http.Handler = mux
	handler = gzipDecompressor(handler)
	handler = requestLogger(handler)
	handler = requestID(handler)
	handler = recoverer(handler)
	handler = realIP(handler)
	return handler
}

// registerHealth registers the liveness, readiness, and metrics routes. All
// are on the public-path allow-list.
func (s *Server) registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "root",
		Method:      http.MethodGet,
		Path:        "/",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "readyCheck",
		Method:      http.MethodGet,
		Path:        "/readyz",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*ReadyOutput, error) {
		out := &ReadyOutput{}
		if err := s.store.Ping(ctx); err != nil {
			out.Status = http.StatusServiceUnavailable
			out.Body.Status = "directory store unreachable"
			return out, nil
		}
		if err := s.wh.Ping(ctx); err != nil {
			out.Status = http.StatusServiceUnavailable
			out.Body.Status = "warehouse unreachable"
			return out, nil
		}
		out.Status = http.StatusOK
		out.Body.Status = "ready"
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getMetrics",
		Method:      http.MethodGet,
		Path:        "/metrics",
		Tags:        []string{"Meta"},
	}, func(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
		return &huma.StreamResponse{
			Body: func(hctx huma.Context) {
				req, err := http.NewRequestWithContext(hctx.Context(), http.MethodGet, "/metrics", nil)
				if err != nil {
					hctx.SetStatus(http.StatusInternalServerError)
					return
				}
				MetricsHandler().ServeHTTP(newHeaderRecorder(hctx), req)
			},
		}, nil
	})
}

// registerOpenAPI serves the generated OpenAPI document.
func (s *Server) registerOpenAPI(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getOpenAPISpec",
		Method:      http.MethodGet,
		Path:        "/api/openapi",
		Tags:        []string{"Meta"},
	}, func(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
		return &huma.StreamResponse{
			Body: func(hctx huma.Context) {
				hctx.SetHeader("Content-Type", "application/json")
				if s.humaAPI != nil {
					data, _ := stdjson.Marshal(s.humaAPI.OpenAPI())
					_, _ = hctx.BodyWriter().Write(data)
				} else {
					_, _ = hctx.BodyWriter().Write([]byte(`{}`))
				}
			},
		}, nil
	})
}

// isPublicPath reports whether path bypasses the authentication gate.
// Matching is exact-segment: the path equals an allow-list entry, or extends
// it at a "/" boundary. A prefix match alone is NOT sufficient, so
// "/health-internal" is not whitelisted by "/health".
func (s *Server) isPublicPath(path string) bool {
	for _, p := range s.publicPaths {
		if path == p {
			return true
		}
		if p != "/" && strings.HasPrefix(path, p) && path[len(p)] == '/' {
			return true
		}
	}
	return false
}

// authHumaMiddleware validates the Authorization header through the gateway
// and attaches the resolved identity to the request context. Rejections
// short-circuit before any handler executes.
func (s *Server) authHumaMiddleware(api huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		path := ctx.URL().Path
		if s.isPublicPath(path) {
			next(ctx)
			return
		}

		token, err := extractBearer(ctx.Header("Authorization"))
		if err == nil {
			var identity *authz.Identity
			identity, err = s.gateway.Authenticate(ctx.Context(), token)
			if err == nil {
				authOutcomesTotal.WithLabelValues("granted").Inc()
				next(huma.WithContext(ctx, authz.WithIdentity(ctx.Context(), identity)))
				return
			}
		}

		kind := authz.KindOf(err)
		authOutcomesTotal.WithLabelValues(kind.String()).Inc()
		slog.Warn("request rejected",
			"path", path,
			"method", ctx.Method(),
			"reason", kind.String(),
			"error", err.Error(),
		)
		audit.Event{
			Actor:  "anonymous",
			Action: "authenticate",
			Status: "denied",
			Method: ctx.Method(),
			Reason: kind.String(),
			IP:     ctx.RemoteAddr(),
		}.Warn("Audit Log: Access Denied")
		serr := authError(err)
		_ = huma.WriteErr(api, ctx, serr.GetStatus(), serr.Error(), err)
	}
}

// rootPathGuard rejects requests the mux routed to the "/" operation for any
// URL other than "/" itself. The net/http mux treats a "/" pattern as a
// subtree catch-all, which would otherwise answer every unregistered path
// with the health body.
func rootPathGuard(api huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if ctx.Operation().Path == "/" && ctx.URL().Path != "/" {
			_ = huma.WriteErr(api, ctx, http.StatusNotFound, "not found")
			return
		}
		next(ctx)
	}
}

// extractBearer parses an "Authorization: Bearer <token>" header.
func extractBearer(header string) (string, error) {
	if header == "" {
		return "", authz.NewError(authz.KindMissingToken, "authentication token not provided")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", authz.NewError(authz.KindMissingToken, "authorization header is not a bearer token")
	}
	return token, nil
}

// metricsHumaMiddleware records Prometheus metrics for each huma request
// using the operation path as the route label for low-cardinality metrics.
func metricsHumaMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)
	elapsed := time.Since(start)

	route := ctx.Operation().Path
	status := ctx.Status()
	if status == 0 {
		status = 200
	}

	httpRequestsTotal.WithLabelValues(ctx.Method(), route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(ctx.Method(), route).Observe(elapsed.Seconds())
}

// auditHumaMiddleware logs structured audit entries for state-mutating API
// operations. It runs after the auth middleware, so the identity (when one
// exists) is on the context.
func auditHumaMiddleware(ctx huma.Context, next func(huma.Context)) {
	next(ctx)

	method := ctx.Method()
	if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
		return
	}

	actor := "anonymous"
	tenant := ""
	if identity := authz.IdentityFromContext(ctx.Context()); identity != nil {
		actor = identity.SubjectID
		tenant = identity.TenantID
	}

	status := ctx.Status()
	if status == 0 {
		status = 200
	}

	e := audit.Event{
		Actor:      actor,
		Tenant:     tenant,
		Action:     ctx.Operation().OperationID,
		Method:     method,
		HTTPStatus: status,
		IP:         ctx.RemoteAddr(),
	}
	if status >= 400 {
		e.Warn("Audit Log: API Request")
	} else {
		e.Info("Audit Log: API Request")
	}
}

// requestID assigns a request id header when the caller didn't send one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-Id", id)
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each HTTP request with method, path, status, and latency.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(sw, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"latency", time.Since(start),
			"request_id", r.Header.Get("X-Request-Id"),
		)
	})
}

// realIP extracts the real client IP from X-Real-Ip or X-Forwarded-For headers.
func realIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rip := r.Header.Get("X-Real-Ip"); rip != "" {
			r.RemoteAddr = rip
		} else if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if i := strings.IndexByte(xff, ','); i > 0 {
				r.RemoteAddr = strings.TrimSpace(xff[:i])
			} else {
				r.RemoteAddr = xff
			}
		}
		next.ServeHTTP(w, r)
	})
}

// recoverer recovers from panics and returns a 500 Internal Server Error.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				slog.Error("panic recovered", "error", rvr, "method", r.Method, "path", r.URL.Path)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// gzipDecompressor transparently decompresses gzip request bodies.
func gzipDecompressor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") == "gzip" {
			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = stdjson.NewEncoder(w).Encode(map[string]any{
					"code":    http.StatusBadRequest,
					"message": "invalid gzip body",
				})
				return
			}
			r.Body = io.NopCloser(gz)
			r.Header.Del("Content-Encoding")
		}
		next.ServeHTTP(w, r)
	})
}
