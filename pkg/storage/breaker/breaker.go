// Package breaker guards an ItemStore with a circuit breaker. After a run of
// consecutive transient failures the breaker opens and calls fail fast with
// storage.ErrUnavailable until the open timeout elapses and a trial request
// succeeds. Not-found and constraint errors are answers from a healthy store
// and never count against it.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rhuss/stockroom/pkg/api"
	"github.com/rhuss/stockroom/pkg/observability"
	"github.com/rhuss/stockroom/pkg/storage"
)

// Config holds circuit breaker settings.
type Config struct {
	// Name labels log lines and metrics (default: "store").
	Name string

	// FailureThreshold is the number of consecutive transient failures that
	// opens the breaker (default: 5).
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before allowing trial
	// requests (default: 30s).
	OpenTimeout time.Duration

	// HalfOpenRequests is the number of trial requests allowed while
	// half-open (default: 1).
	HalfOpenRequests uint32
}

func (c *Config) defaults() {
	if c.Name == "" {
		c.Name = "store"
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
}

// Store is an ItemStore guarded by a circuit breaker.
type Store struct {
	next storage.ItemStore
	cb   *gobreaker.CircuitBreaker
}

var _ storage.ItemStore = (*Store)(nil)

// Wrap returns next guarded by a circuit breaker configured by cfg.
func Wrap(next storage.ItemStore, cfg Config) *Store {
	cfg.defaults()

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("store circuit breaker state change",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			observability.RecordBreakerTransition(name, from.String(), to.String(), int(to))
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up says nothing about store health.
			return !storage.IsTransient(err) || errors.Is(err, context.Canceled)
		},
	}

	observability.BreakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))

	return &Store{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State returns the current breaker state.
func (s *Store) State() gobreaker.State {
	return s.cb.State()
}

// execute runs fn through the breaker and maps rejection to ErrUnavailable.
func execute[T any](s *Store, fn func() (T, error)) (T, error) {
	out, err := s.cb.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%w: %s", storage.ErrUnavailable, err)
	}
	v, _ := out.(T)
	return v, err
}

// CreateItem inserts an item through the breaker.
func (s *Store) CreateItem(ctx context.Context, item *api.Item) (*api.Item, error) {
	return execute(s, func() (*api.Item, error) { return s.next.CreateItem(ctx, item) })
}

// GetItem retrieves an item by ID through the breaker.
func (s *Store) GetItem(ctx context.Context, id string) (*api.Item, error) {
	return execute(s, func() (*api.Item, error) { return s.next.GetItem(ctx, id) })
}

// ListItems returns an owner's items through the breaker.
func (s *Store) ListItems(ctx context.Context, ownerID string) ([]*api.Item, error) {
	return execute(s, func() ([]*api.Item, error) { return s.next.ListItems(ctx, ownerID) })
}

// UpdateItem applies a patch through the breaker.
func (s *Store) UpdateItem(ctx context.Context, id string, patch api.ItemPatch) (*api.Item, error) {
	return execute(s, func() (*api.Item, error) { return s.next.UpdateItem(ctx, id, patch) })
}

// DeleteItem removes an item through the breaker.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	_, err := execute(s, func() (struct{}, error) { return struct{}{}, s.next.DeleteItem(ctx, id) })
	return err
}

// HealthCheck bypasses the breaker so readiness probes see the real
// backend state.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.next.HealthCheck(ctx)
}

// Close closes the wrapped store.
func (s *Store) Close() error {
	return s.next.Close()
}
