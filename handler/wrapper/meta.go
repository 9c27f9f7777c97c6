package wrapper

import (
	"context"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/handler"
	"github.com/rise-and-shine/actionrpc/meta"
	"github.com/rise-and-shine/actionrpc/observability/tracing"
)

type MetaHandlerWrapper[A action.Of[R], R action.Result] struct {
	next handler.Handler[A, R]
}

// NewMeta stores the action kind in the context and starts a trace id when
// the caller did not bring one.
func NewMeta[A action.Of[R], R action.Result]() handler.WrapFunc[A, R] {
	return func(next handler.Handler[A, R]) handler.Handler[A, R] {
		return &MetaHandlerWrapper[A, R]{next: next}
	}
}

func (h *MetaHandlerWrapper[A, R]) Execute(ctx context.Context, a A) (R, error) {
	traceID := meta.Find(ctx, meta.TraceID)
	if traceID == "" {
		traceID = tracing.GetStartingTraceID(ctx)
	}

	ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{
		meta.TraceID:    traceID,
		meta.ActionKind: string(a.Kind()),
	})

	return h.next.Execute(ctx, a)
}
