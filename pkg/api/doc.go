// Package api defines the core protocol types for the stockroom inventory API.
//
// This package provides the wire types exchanged with clients (inventory
// items, create drafts, update patches, dashboard stats), the caller
// identity threaded through every inventory operation, the structured
// error taxonomy, and item ID generation and validation.
//
// The package performs no I/O. Types serialize to the camelCase JSON
// consumed by the dashboard UI.
//
// Core types:
//   - [Item]: A stored inventory record owned by exactly one user
//   - [ItemDraft]: Client payload for creating an item
//   - [ItemPatch]: Client payload for updating an item (any subset of fields)
//   - [Caller]: The authenticated user on whose behalf an operation runs
//   - [APIError]: Structured error with type, param, and message
package api
