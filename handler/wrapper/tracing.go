package wrapper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/handler"
)

type TracingHandlerWrapper[A action.Of[R], R action.Result] struct {
	tracer   trace.Tracer
	spanName string
	next     handler.Handler[A, R]
}

// NewTracing opens a span named after the action kind around every execution.
func NewTracing[A action.Of[R], R action.Result]() handler.WrapFunc[A, R] {
	return func(next handler.Handler[A, R]) handler.Handler[A, R] {
		return &TracingHandlerWrapper[A, R]{
			tracer:   otel.Tracer("actionrpc/handler"),
			spanName: "handle " + string(kindOf[A]()),
			next:     next,
		}
	}
}

func (h *TracingHandlerWrapper[A, R]) Execute(ctx context.Context, a A) (R, error) {
	ctx, span := h.tracer.Start(ctx, h.spanName)
	defer span.End()

	result, err := h.next.Execute(ctx, a)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	span.SetAttributes(attribute.Bool("actionrpc.result.complete", result.IsComplete()))
	return result, nil
}
