package wrapper

import (
	"context"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/handler"
	"github.com/rise-and-shine/actionrpc/observability/alert"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

type AlertHandlerWrapper[A action.Of[R], R action.Result] struct {
	logger    logger.Logger
	provider  alert.Provider
	operation string
	next      handler.Handler[A, R]
}

// NewAlert reports internal errors of the handler through provider. The
// error is returned unchanged.
func NewAlert[A action.Of[R], R action.Result](log logger.Logger, provider alert.Provider) handler.WrapFunc[A, R] {
	return func(next handler.Handler[A, R]) handler.Handler[A, R] {
		return &AlertHandlerWrapper[A, R]{
			logger:    log.Named("handler.alert"),
			provider:  provider,
			operation: "handle " + string(kindOf[A]()),
			next:      next,
		}
	}
}

func (h *AlertHandlerWrapper[A, R]) Execute(ctx context.Context, a A) (R, error) {
	result, err := h.next.Execute(ctx, a)
	alert.Notify(ctx, h.provider, h.logger, h.operation, err)
	return result, err
}
