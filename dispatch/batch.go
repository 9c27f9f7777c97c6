package dispatch

import (
	"context"

	"github.com/rise-and-shine/actionrpc/action"
)

// NewBatchHandler returns the handler of action.BatchAction. Each sub-action
// is dispatched through e in order and its outcome stored in the matching
// slot; a failed slot never fails the batch.
func NewBatchHandler(e Executor) HandlerFunc {
	return func(ctx context.Context, a action.Action) (action.Result, error) {
		batch, ok := a.(action.BatchAction)
		if !ok {
			return nil, typeMismatch(action.KindBatch, action.BatchAction{}, a)
		}

		res := &action.BatchResult{Outcomes: make([]action.Outcome, 0, len(batch.Actions))}
		for _, sub := range batch.Actions {
			r, err := e.Dispatch(ctx, sub)
			res.Outcomes = append(res.Outcomes, action.Outcome{Result: r, Err: err})
		}
		return res, nil
	}
}

// BindBatch registers NewBatchHandler(e) for the batch kind.
func BindBatch(reg *Registry, e Executor) error {
	return reg.Handle(action.KindBatch, NewBatchHandler(e))
}

// Local returns an Invoker that dispatches in-process. Each invocation runs
// on its own goroutine.
func Local(e Executor) action.Invoker {
	return action.InvokerFunc(func(ctx context.Context, a action.Action) *action.Future {
		f := action.NewFuture()
		go func() {
			f.Resolve(e.Dispatch(ctx, a))
		}()
		return f
	})
}
