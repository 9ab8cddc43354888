package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rhuss/stockroom/pkg/api"
)

// ItemStore persists inventory items. Every method is atomic with respect
// to a single item ID. Concurrent updates to the same item are last write
// wins; no version check is performed.
type ItemStore interface {
	// CreateItem persists a new item. The store assigns ID, Seq, CreatedAt,
	// and UpdatedAt, ignoring any values already set on item, and returns
	// the stored record. Returns an error wrapping ErrConstraint if the item
	// violates a store constraint.
	CreateItem(ctx context.Context, item *api.Item) (*api.Item, error)

	// GetItem retrieves an item by ID regardless of owner. Returns
	// ErrNotFound if no such item exists or the ID is malformed.
	GetItem(ctx context.Context, id string) (*api.Item, error)

	// ListItems returns every item owned by ownerID, newest first
	// (CreatedAt descending, then Seq descending). Returns an empty,
	// non-nil slice when the owner has no items.
	ListItems(ctx context.Context, ownerID string) ([]*api.Item, error)

	// UpdateItem applies patch to the item and refreshes UpdatedAt so that
	// it strictly advances. Returns ErrNotFound if the item does not exist
	// and an error wrapping ErrConstraint if the result is invalid.
	UpdateItem(ctx context.Context, id string, patch api.ItemPatch) (*api.Item, error)

	// DeleteItem permanently removes an item. Returns ErrNotFound if the
	// item does not exist.
	DeleteItem(ctx context.Context, id string) error

	// HealthCheck verifies the store connection is functional.
	HealthCheck(ctx context.Context) error

	// Close releases connections and resources.
	Close() error
}

// MaxQuantity is the largest quantity any backend stores. It matches the
// PostgreSQL INTEGER column so every adapter accepts the same range.
const MaxQuantity = math.MaxInt32

// CheckConstraints enforces the quantity and price rules for adapters whose
// backend has no native constraint support.
func CheckConstraints(item *api.Item) error {
	if err := CheckQuantity(item.Quantity); err != nil {
		return err
	}
	if item.Price < 0 {
		return fmt.Errorf("%w: Price cannot be negative", ErrConstraint)
	}
	return nil
}

// CheckQuantity reports whether q lies within 0..MaxQuantity.
func CheckQuantity(q int) error {
	if q < 0 {
		return fmt.Errorf("%w: Quantity cannot be negative", ErrConstraint)
	}
	if q > MaxQuantity {
		return fmt.Errorf("%w: Quantity cannot exceed %d", ErrConstraint, MaxQuantity)
	}
	return nil
}

// SortNewestFirst orders items by CreatedAt descending, breaking ties by
// insertion sequence so later inserts come first.
func SortNewestFirst(items []*api.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].Seq > items[j].Seq
	})
}

// Timestamp normalizes t to UTC at microsecond precision, the finest
// resolution every adapter can round-trip.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// NextUpdate returns the UpdatedAt value for a mutation happening at now,
// guaranteeing it is strictly later than prev even when the clock has not
// moved past it.
func NextUpdate(prev, now time.Time) time.Time {
	now = Timestamp(now)
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}
