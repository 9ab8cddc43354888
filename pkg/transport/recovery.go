package transport

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/rhuss/stockroom/pkg/api"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to server error responses. The server continues to
// accept new requests after a panic is recovered.
func Recovery() Middleware {
	return Intercept(func(ctx context.Context, op Operation, next func(context.Context) error) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in inventory handler",
					"operation", op.Name,
					"request_id", RequestIDFromContext(ctx),
					"panic", r,
					"stack", string(debug.Stack()),
				)
				retErr = api.NewServerError("internal server error")
			}
		}()
		return next(ctx)
	})
}
