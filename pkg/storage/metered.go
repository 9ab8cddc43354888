package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rhuss/stockroom/pkg/api"
	"github.com/rhuss/stockroom/pkg/observability"
)

// Metered wraps an ItemStore and records the latency and outcome of every
// call under the given backend label.
type Metered struct {
	next    ItemStore
	backend string
}

var _ ItemStore = (*Metered)(nil)

// WithMetrics returns store instrumented with Prometheus metrics.
func WithMetrics(backend string, store ItemStore) *Metered {
	return &Metered{next: store, backend: backend}
}

func (m *Metered) observe(op string, start time.Time, err error) {
	observability.ObserveStoreOp(m.backend, op, Outcome(err), time.Since(start))
}

// CreateItem inserts an item and records the call.
func (m *Metered) CreateItem(ctx context.Context, item *api.Item) (*api.Item, error) {
	start := time.Now()
	out, err := m.next.CreateItem(ctx, item)
	m.observe("create", start, err)
	return out, err
}

// GetItem retrieves an item by ID and records the call.
func (m *Metered) GetItem(ctx context.Context, id string) (*api.Item, error) {
	start := time.Now()
	out, err := m.next.GetItem(ctx, id)
	m.observe("get", start, err)
	return out, err
}

// ListItems returns an owner's items and records the call.
func (m *Metered) ListItems(ctx context.Context, ownerID string) ([]*api.Item, error) {
	start := time.Now()
	out, err := m.next.ListItems(ctx, ownerID)
	m.observe("list", start, err)
	return out, err
}

// UpdateItem applies a patch and records the call.
func (m *Metered) UpdateItem(ctx context.Context, id string, patch api.ItemPatch) (*api.Item, error) {
	start := time.Now()
	out, err := m.next.UpdateItem(ctx, id, patch)
	m.observe("update", start, err)
	return out, err
}

// DeleteItem removes an item and records the call.
func (m *Metered) DeleteItem(ctx context.Context, id string) error {
	start := time.Now()
	err := m.next.DeleteItem(ctx, id)
	m.observe("delete", start, err)
	return err
}

// HealthCheck checks the wrapped store without recording metrics.
func (m *Metered) HealthCheck(ctx context.Context) error {
	return m.next.HealthCheck(ctx)
}

// Close closes the wrapped store.
func (m *Metered) Close() error {
	return m.next.Close()
}

// Outcome classifies a store error for metrics and logging.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConstraint):
		return "constraint"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}

// IsTransient reports whether err indicates the store itself failed, as
// opposed to a well-formed answer such as not-found or a constraint
// violation.
func IsTransient(err error) bool {
	switch Outcome(err) {
	case "ok", "not_found", "constraint":
		return false
	default:
		return true
	}
}
