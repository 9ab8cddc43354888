package transport

import (
	"context"

	"github.com/google/uuid"
)

// RequestID returns middleware that assigns a unique request ID to each
// operation. If the incoming context already carries a request ID (set by
// the HTTP adapter from the X-Request-ID header), that value is used.
// Otherwise, a new unique ID is generated.
func RequestID() Middleware {
	return Intercept(func(ctx context.Context, op Operation, next func(context.Context) error) error {
		if RequestIDFromContext(ctx) == "" {
			ctx = ContextWithRequestID(ctx, NewRequestID())
		}
		return next(ctx)
	})
}

// NewRequestID creates a new unique request ID.
func NewRequestID() string {
	return uuid.NewString()
}
