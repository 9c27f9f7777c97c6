// Package handler defines typed server-side action handlers and the
// middleware signature used to wrap them.
//
// A handler executes one action kind. It may return an incomplete result, in
// which case the dispatcher invokes it again with the same action; any state
// needed to make progress between invocations belongs to the handler.
package handler

import (
	"context"

	"github.com/rise-and-shine/actionrpc/action"
)

// Handler executes actions of type A and produces results of type R.
type Handler[A action.Of[R], R action.Result] interface {
	// Execute processes the action. A returned error ends the dispatch and is
	// passed to the caller unchanged.
	Execute(ctx context.Context, a A) (R, error)
}

// Func adapts a function to the Handler interface.
type Func[A action.Of[R], R action.Result] func(ctx context.Context, a A) (R, error)

// Execute calls f(ctx, a).
func (f Func[A, R]) Execute(ctx context.Context, a A) (R, error) {
	return f(ctx, a)
}

// WrapFunc decorates a Handler with a cross-cutting concern.
type WrapFunc[A action.Of[R], R action.Result] func(Handler[A, R]) Handler[A, R]

// Wrap applies wraps to h. The first wrap becomes the outermost layer.
func Wrap[A action.Of[R], R action.Result](h Handler[A, R], wraps ...WrapFunc[A, R]) Handler[A, R] {
	for i := len(wraps) - 1; i >= 0; i-- {
		h = wraps[i](h)
	}
	return h
}
