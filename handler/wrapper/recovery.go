package wrapper

import (
	"context"
	"fmt"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/handler"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

type RecoveryHandlerWrapper[A action.Of[R], R action.Result] struct {
	logger logger.Logger
	next   handler.Handler[A, R]
}

// NewRecovery turns a panic in the wrapped handler into an internal error.
func NewRecovery[A action.Of[R], R action.Result](log logger.Logger) handler.WrapFunc[A, R] {
	return func(next handler.Handler[A, R]) handler.Handler[A, R] {
		return &RecoveryHandlerWrapper[A, R]{
			logger: log.Named("handler.recovery").With("action_kind", kindOf[A]()),
			next:   next,
		}
	}
}

func (h *RecoveryHandlerWrapper[A, R]) Execute(ctx context.Context, a A) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			trace := stackTrace()

			h.logger.
				WithContext(ctx).
				With("stack_trace", trace).
				With("panic_values", fmt.Sprintf("%v", r)).
				Error("panic recovered in recovery wrapper")

			err = errx.New("panic recovered in recovery wrapper",
				errx.WithType(errx.T_Internal),
				errx.WithDetails(errx.D{
					"stack_trace":  trace,
					"panic_values": fmt.Sprintf("%v", r),
				}),
			)
		}
	}()

	return h.next.Execute(ctx, a)
}
