package wrapper

import (
	"context"
	"time"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/handler"
)

type TimeoutHandlerWrapper[A action.Of[R], R action.Result] struct {
	timeout time.Duration
	next    handler.Handler[A, R]
}

// NewTimeout bounds each execution with a context deadline. Handlers that
// ignore their context are not interrupted.
func NewTimeout[A action.Of[R], R action.Result](timeout time.Duration) handler.WrapFunc[A, R] {
	return func(next handler.Handler[A, R]) handler.Handler[A, R] {
		return &TimeoutHandlerWrapper[A, R]{timeout: timeout, next: next}
	}
}

func (h *TimeoutHandlerWrapper[A, R]) Execute(ctx context.Context, a A) (R, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	return h.next.Execute(ctx, a)
}
