package observability

import "time"

// ObserveStoreOp records one item store call.
func ObserveStoreOp(backend, op, result string, elapsed time.Duration) {
	StoreOperationsTotal.WithLabelValues(backend, op, result).Inc()
	StoreLatency.WithLabelValues(backend, op).Observe(elapsed.Seconds())
}

// RecordBreakerTransition updates the breaker gauge and transition counter.
// state uses the numeric encoding documented on BreakerState.
func RecordBreakerTransition(name, from, to string, state int) {
	BreakerTransitionsTotal.WithLabelValues(name, from, to).Inc()
	BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordAuthFailure counts a rejected request credential.
func RecordAuthFailure(reason string) {
	AuthFailuresTotal.WithLabelValues(reason).Inc()
}
