package wrapper

import (
	"context"
	"fmt"
	"time"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/handler"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

type LoggerHandlerWrapper[A action.Of[R], R action.Result] struct {
	logger logger.Logger
	next   handler.Handler[A, R]
}

// NewLogger logs every execution with its duration, the action and either
// the completeness of the result or the error.
func NewLogger[A action.Of[R], R action.Result](log logger.Logger) handler.WrapFunc[A, R] {
	return func(next handler.Handler[A, R]) handler.Handler[A, R] {
		return &LoggerHandlerWrapper[A, R]{
			logger: log.Named("handler.logger").With("action_kind", kindOf[A]()),
			next:   next,
		}
	}
}

func (h *LoggerHandlerWrapper[A, R]) Execute(ctx context.Context, a A) (R, error) {
	start := time.Now()

	result, err := executeWithRecovery(ctx, h.next, a)

	log := h.logger.
		WithContext(ctx).
		With("execution_time", time.Since(start).String()).
		With("action", a)

	if err != nil {
		e := errx.AsErrorX(err)
		log.With("error", map[string]any{
			"code":    e.Code(),
			"message": e.Error(),
			"type":    e.Type().String(),
			"trace":   e.Trace(),
			"fields":  e.Fields(),
			"details": e.Details(),
		}).Error("action failed")
		return result, err
	}

	log.With("complete", result.IsComplete()).Info("action executed")
	return result, nil
}

func executeWithRecovery[A action.Of[R], R action.Result](
	ctx context.Context,
	next handler.Handler[A, R],
	a A,
) (_ R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errx.New("panic recovered in logger handler wrapper", errx.WithDetails(errx.D{
				"stack_trace":  stackTrace(),
				"panic_values": fmt.Sprintf("%v", r),
			}))
		}
	}()

	return next.Execute(ctx, a)
}
