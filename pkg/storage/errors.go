package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when an item does not exist, has been deleted,
	// or the ID is not structurally valid for the store.
	ErrNotFound = errors.New("item not found")

	// ErrConstraint is returned when a write violates a store-level
	// constraint such as a negative quantity or price. Adapters wrap it
	// with the offending field.
	ErrConstraint = errors.New("constraint violation")

	// ErrUnavailable is returned when the store is known to be unhealthy
	// and the call was rejected without reaching it.
	ErrUnavailable = errors.New("store unavailable")
)
