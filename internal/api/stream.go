package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// headerRecorder adapts a huma.Context to http.ResponseWriter so plain
// handlers (the Prometheus exporter) can stream into a huma response.
type headerRecorder struct {
	ctx     huma.Context
	headers http.Header
	wrote   bool
}

func newHeaderRecorder(ctx huma.Context) *headerRecorder {
	return &headerRecorder{ctx: ctx, headers: make(http.Header)}
}

func (r *headerRecorder) Header() http.Header { return r.headers }

func (r *headerRecorder) WriteHeader(status int) {
	if r.wrote {
		return
	}
	r.wrote = true
	for k, vs := range r.headers {
		for _, v := range vs {
			r.ctx.AppendHeader(k, v)
		}
	}
	r.ctx.SetStatus(status)
}

func (r *headerRecorder) Write(p []byte) (int, error) {
	if !r.wrote {
		r.WriteHeader(http.StatusOK)
	}
	return r.ctx.BodyWriter().Write(p)
}
