package transport

import (
	"context"

	"github.com/rhuss/stockroom/pkg/api"
)

// Middleware wraps an InventoryHandler to add cross-cutting behavior.
// Middleware is applied in order: the first middleware in the chain is
// the outermost wrapper (executes first on the way in, last on the way out).
type Middleware func(InventoryHandler) InventoryHandler

// Chain composes multiple middleware into a single middleware.
// Middleware are applied in order: Chain(a, b, c) produces a(b(c(handler))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next InventoryHandler) InventoryHandler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Operation describes a single inventory call as seen by an Interceptor.
type Operation struct {
	// Name is one of list, get, create, update, delete, stats.
	Name string

	// Caller is the identity the call runs for.
	Caller api.Caller

	// ItemID is the target record, empty for list, create, and stats.
	ItemID string
}

// Interceptor runs around one operation. It must call next at most once
// and return its error, possibly replaced.
type Interceptor func(ctx context.Context, op Operation, next func(ctx context.Context) error) error

// Intercept turns an Interceptor into Middleware applied uniformly to
// every InventoryHandler method.
func Intercept(fn Interceptor) Middleware {
	return func(next InventoryHandler) InventoryHandler {
		return &intercepted{next: next, fn: fn}
	}
}

type intercepted struct {
	next InventoryHandler
	fn   Interceptor
}

func (h *intercepted) List(ctx context.Context, caller api.Caller) (items []*api.Item, err error) {
	err = h.fn(ctx, Operation{Name: "list", Caller: caller}, func(ctx context.Context) error {
		items, err = h.next.List(ctx, caller)
		return err
	})
	return items, err
}

func (h *intercepted) Get(ctx context.Context, caller api.Caller, id string) (item *api.Item, err error) {
	err = h.fn(ctx, Operation{Name: "get", Caller: caller, ItemID: id}, func(ctx context.Context) error {
		item, err = h.next.Get(ctx, caller, id)
		return err
	})
	return item, err
}

func (h *intercepted) Create(ctx context.Context, caller api.Caller, draft *api.ItemDraft) (item *api.Item, err error) {
	err = h.fn(ctx, Operation{Name: "create", Caller: caller}, func(ctx context.Context) error {
		item, err = h.next.Create(ctx, caller, draft)
		return err
	})
	return item, err
}

func (h *intercepted) Update(ctx context.Context, caller api.Caller, id string, patch api.ItemPatch) (item *api.Item, err error) {
	err = h.fn(ctx, Operation{Name: "update", Caller: caller, ItemID: id}, func(ctx context.Context) error {
		item, err = h.next.Update(ctx, caller, id, patch)
		return err
	})
	return item, err
}

func (h *intercepted) Delete(ctx context.Context, caller api.Caller, id string) (res *api.DeleteResult, err error) {
	err = h.fn(ctx, Operation{Name: "delete", Caller: caller, ItemID: id}, func(ctx context.Context) error {
		res, err = h.next.Delete(ctx, caller, id)
		return err
	})
	return res, err
}

func (h *intercepted) Stats(ctx context.Context, caller api.Caller) (stats *api.Stats, err error) {
	err = h.fn(ctx, Operation{Name: "stats", Caller: caller}, func(ctx context.Context) error {
		stats, err = h.next.Stats(ctx, caller)
		return err
	})
	return stats, err
}

// requestIDKeyType is the context key type for request IDs.
type requestIDKeyType struct{}

// requestIDKey is the context key for storing and retrieving request IDs.
var requestIDKey = requestIDKeyType{}

// RequestIDFromContext extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
