package transport

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing returns middleware that records one span per inventory operation,
// named "inventory.<operation>". Failed operations carry the error type;
// server-side failures also mark the span as errored. A nil provider uses
// the global one.
func Tracing(tp trace.TracerProvider) Middleware {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer("github.com/rhuss/stockroom/pkg/transport")

	return Intercept(func(ctx context.Context, op Operation, next func(context.Context) error) error {
		attrs := []attribute.KeyValue{
			attribute.String("inventory.operation", op.Name),
			attribute.String("inventory.caller", op.Caller.UserID),
		}
		if op.ItemID != "" {
			attrs = append(attrs, attribute.String("inventory.item_id", op.ItemID))
		}
		if id := RequestIDFromContext(ctx); id != "" {
			attrs = append(attrs, attribute.String("request.id", id))
		}

		ctx, span := tracer.Start(ctx, "inventory."+op.Name, trace.WithAttributes(attrs...))
		defer span.End()

		err := next(ctx)
		if err != nil {
			apiErr := ToAPIError(err)
			span.SetAttributes(attribute.String("inventory.error_type", string(apiErr.Type)))
			if HTTPStatusFromError(apiErr) >= 500 {
				span.RecordError(err)
				span.SetStatus(codes.Error, apiErr.Message)
			}
		}
		return err
	})
}
