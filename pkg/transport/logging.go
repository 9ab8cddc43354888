package transport

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that emits one structured log entry per
// inventory operation with the operation name, caller, target item,
// request ID, and duration. Failures carry the error type; server-side
// failures are logged at ERROR, client errors at INFO.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return Intercept(func(ctx context.Context, op Operation, next func(context.Context) error) error {
		start := time.Now()

		err := next(ctx)

		attrs := []slog.Attr{
			slog.String("request_id", RequestIDFromContext(ctx)),
			slog.String("operation", op.Name),
			slog.String("caller", op.Caller.UserID),
			slog.Duration("duration", time.Since(start)),
		}
		if op.ItemID != "" {
			attrs = append(attrs, slog.String("item_id", op.ItemID))
		}

		if err == nil {
			logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
			return nil
		}

		apiErr := ToAPIError(err)
		attrs = append(attrs,
			slog.String("error_type", string(apiErr.Type)),
			slog.String("error", apiErr.Message),
		)
		level := slog.LevelInfo
		if HTTPStatusFromError(apiErr) >= 500 {
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "request failed", attrs...)
		return err
	})
}
