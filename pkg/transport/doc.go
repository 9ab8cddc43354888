// Package transport defines the handler interface and middleware chain for
// the stockroom HTTP transport layer.
//
// The transport layer bridges external clients and the inventory service.
// It decodes incoming requests into the types defined in pkg/api, dispatches
// them to an InventoryHandler together with the authenticated api.Caller,
// and encodes results or structured errors back to the client.
//
// # Handler Interface
//
// InventoryHandler is the contract between transport and the inventory
// service. Every method receives the caller explicitly; the handler never
// reads identity from the request context.
//
// # Middleware
//
// The middleware chain wraps InventoryHandler with cross-cutting concerns.
// Middleware is built from Interceptors, which see every operation as an
// Operation descriptor plus a continuation. Built-in interceptors provide
// panic recovery, request ID assignment (X-Request-ID), and structured
// logging via log/slog.
package transport
