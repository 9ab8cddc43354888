// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the stockroom inventory service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// APIBuckets defines histogram buckets suited for CRUD request latencies,
// ranging from 1ms to 10s.
var APIBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method, route pattern, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockroom_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockroom_request_duration_seconds",
			Help:    "Request duration",
			Buckets: APIBuckets,
		},
		[]string{"method", "route"},
	)

	// InFlightRequests tracks requests currently being served.
	InFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockroom_requests_in_flight",
			Help: "Requests in flight",
		},
	)

	// AuthFailuresTotal counts rejected credentials by reason
	// (unauthenticated, invalid_credential).
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockroom_auth_failures_total",
			Help: "Authentication failures",
		},
		[]string{"reason"},
	)

	// StoreOperationsTotal counts item store calls by backend, operation, and result.
	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockroom_store_operations_total",
			Help: "Store operations",
		},
		[]string{"backend", "operation", "result"},
	)

	// StoreLatency records item store call latency in seconds.
	StoreLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockroom_store_latency_seconds",
			Help:    "Store latency",
			Buckets: APIBuckets,
		},
		[]string{"backend", "operation"},
	)

	// BreakerState reports the store circuit breaker state
	// (0=closed, 1=half-open, 2=open).
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stockroom_breaker_state",
			Help: "Circuit breaker state",
		},
		[]string{"name"},
	)

	// BreakerTransitionsTotal counts circuit breaker state changes.
	BreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockroom_breaker_transitions_total",
			Help: "Circuit breaker transitions",
		},
		[]string{"name", "from", "to"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		InFlightRequests,
		AuthFailuresTotal,
		StoreOperationsTotal,
		StoreLatency,
		BreakerState,
		BreakerTransitionsTotal,
	)
}
