package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry without panicking.
func TestMetricsRegistered(t *testing.T) {
	expected := map[string]bool{
		"stockroom_requests_total":            false,
		"stockroom_request_duration_seconds":  false,
		"stockroom_requests_in_flight":        false,
		"stockroom_auth_failures_total":       false,
		"stockroom_store_operations_total":    false,
		"stockroom_store_latency_seconds":     false,
		"stockroom_breaker_state":             false,
		"stockroom_breaker_transitions_total": false,
	}

	// Vectors only appear after their first observation.
	RequestsTotal.WithLabelValues("GET", "GET /inventory", "2xx").Inc()
	RequestDuration.WithLabelValues("GET", "GET /inventory").Observe(0.01)
	RecordAuthFailure("unauthenticated")
	ObserveStoreOp("memory", "get", "ok", time.Millisecond)
	RecordBreakerTransition("test", "closed", "open", 2)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

// TestMiddlewareLabelsByPattern verifies that the route label is the matched
// mux pattern, not the raw request path.
func TestMiddlewareLabelsByPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /inventory/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := MetricsMiddleware(mux)

	before := counterValue(t, RequestsTotal, "GET", "GET /inventory/{id}", "2xx")

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest("GET", "/inventory/"+id, nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	after := counterValue(t, RequestsTotal, "GET", "GET /inventory/{id}", "2xx")
	if after-before != 2 {
		t.Errorf("expected request count to increase by 2, got delta=%f", after-before)
	}
}

// TestMiddlewareUnmatchedRoute verifies that unrouted paths share one label.
func TestMiddlewareUnmatchedRoute(t *testing.T) {
	handler := MetricsMiddleware(http.NewServeMux())

	before := counterValue(t, RequestsTotal, "GET", unmatchedRoute, "4xx")

	req := httptest.NewRequest("GET", "/no/such/path", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	after := counterValue(t, RequestsTotal, "GET", unmatchedRoute, "4xx")
	if after-before != 1 {
		t.Errorf("expected 4xx count to increase by 1, got delta=%f", after-before)
	}
}

// TestMiddlewareRecordsDuration verifies that the middleware records
// a request duration observation.
func TestMiddlewareRecordsDuration(t *testing.T) {
	before := histogramCount(t, RequestDuration, "POST", unmatchedRoute)

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest("POST", "/inventory", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	after := histogramCount(t, RequestDuration, "POST", unmatchedRoute)
	if after-before != 1 {
		t.Errorf("expected histogram sample count to increase by 1, got delta=%d", after-before)
	}
}

// TestMiddlewareInFlightGauge verifies that the in-flight gauge increments
// during a request and decrements after completion.
func TestMiddlewareInFlightGauge(t *testing.T) {
	baseline := gaugeValue(t, InFlightRequests)

	inHandler := make(chan float64, 1)
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inHandler <- gaugeValue(t, InFlightRequests)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/inventory", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	duringRequest := <-inHandler
	afterRequest := gaugeValue(t, InFlightRequests)

	if duringRequest != baseline+1 {
		t.Errorf("expected in-flight gauge=%f during request, got %f", baseline+1, duringRequest)
	}
	if afterRequest != baseline {
		t.Errorf("expected in-flight gauge=%f after request, got %f", baseline, afterRequest)
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	before := counterValue(t, BreakerTransitionsTotal, "store", "closed", "open")

	RecordBreakerTransition("store", "closed", "open", 2)

	if got := counterValue(t, BreakerTransitionsTotal, "store", "closed", "open"); got-before != 1 {
		t.Errorf("transition delta = %f, want 1", got-before)
	}
	g, err := BreakerState.GetMetricWithLabelValues("store")
	if err != nil {
		t.Fatalf("getting gauge: %v", err)
	}
	if v := gaugeValue(t, g); v != 2 {
		t.Errorf("breaker state = %f, want 2", v)
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

// gaugeValue reads the current value of a Gauge.
func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("writing gauge metric: %v", err)
	}
	return m.GetGauge().GetValue()
}
