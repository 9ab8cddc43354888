// Package memory provides an in-memory implementation of storage.ItemStore
// for testing and lightweight deployments. Items are stored in memory and
// lost when the process restarts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rhuss/stockroom/pkg/api"
	"github.com/rhuss/stockroom/pkg/storage"
)

// Store is an in-memory ItemStore.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*api.Item
	owners  map[string]map[string]struct{} // ownerID -> set of item IDs
	seq     int64
	now     func() time.Time
}

// Ensure Store implements storage.ItemStore at compile time.
var _ storage.ItemStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a new empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*api.Item),
		owners:  make(map[string]map[string]struct{}),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateItem stores a copy of item under a fresh ID.
func (s *Store) CreateItem(_ context.Context, item *api.Item) (*api.Item, error) {
	if err := storage.CheckConstraints(item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := item.Clone()
	stored.ID = api.NewItemID()
	for s.entries[stored.ID] != nil {
		stored.ID = api.NewItemID()
	}
	s.seq++
	stored.Seq = s.seq
	stored.CreatedAt = storage.Timestamp(s.now())
	stored.UpdatedAt = stored.CreatedAt

	s.entries[stored.ID] = stored
	ids, ok := s.owners[stored.OwnerID]
	if !ok {
		ids = make(map[string]struct{})
		s.owners[stored.OwnerID] = ids
	}
	ids[stored.ID] = struct{}{}

	return stored.Clone(), nil
}

// GetItem retrieves an item by ID. Returns ErrNotFound if the item does
// not exist.
func (s *Store) GetItem(_ context.Context, id string) (*api.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return e.Clone(), nil
}

// ListItems returns the owner's items, newest first.
func (s *Store) ListItems(_ context.Context, ownerID string) ([]*api.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.owners[ownerID]
	items := make([]*api.Item, 0, len(ids))
	for id := range ids {
		items = append(items, s.entries[id].Clone())
	}

	storage.SortNewestFirst(items)
	return items, nil
}

// UpdateItem applies patch to the stored item. The item is left untouched
// when the patched result violates a constraint.
func (s *Store) UpdateItem(_ context.Context, id string, patch api.ItemPatch) (*api.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	next := e.Clone()
	patch.Apply(next)
	if err := storage.CheckConstraints(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = storage.NextUpdate(e.UpdatedAt, s.now())

	s.entries[id] = next
	return next.Clone(), nil
}

// DeleteItem permanently removes an item.
func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return storage.ErrNotFound
	}

	delete(s.entries, id)
	if ids := s.owners[e.OwnerID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.owners, e.OwnerID)
		}
	}
	return nil
}

// Len returns the number of stored items across all owners.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
