// Package inventory implements the owner-scoped inventory operations.
//
// Every Service method takes the calling identity as an explicit
// api.Caller argument. Records are visible and mutable only to the caller
// that created them: a missing or malformed ID yields a not_found error,
// while an existing record owned by someone else yields unauthorized.
// Ownership is always checked before a patch is validated or applied.
//
// Errors returned by Service methods are *api.APIError values ready for
// the transport layer to render.
package inventory
