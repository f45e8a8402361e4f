package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_gateway_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warehouse_gateway_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	authOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_gateway_auth_outcomes_total",
			Help: "Authentication gate outcomes by result.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, authOutcomesTotal)
}

// RegisterIdentityCacheGauges registers gauges that track identity cache
// occupancy and hit counters.
func RegisterIdentityCacheGauges(size, hits, misses func() float64) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "warehouse_gateway_identity_cache_entries",
			Help: "Number of identities currently cached.",
		}, size),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "warehouse_gateway_identity_cache_hits_total",
			Help: "Identity cache hits.",
		}, hits),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "warehouse_gateway_identity_cache_misses_total",
			Help: "Identity cache misses.",
		}, misses),
	)
}

// MetricsHandler returns the Prometheus metrics HTTP handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
