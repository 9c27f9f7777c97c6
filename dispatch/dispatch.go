// Package dispatch is the server side of actionrpc: it routes actions to the
// handlers bound in a Registry and, in its publishing flavour, offers every
// produced result to long-polling subscribers.
package dispatch

import (
	"context"

	"github.com/code19m/errx"
	"github.com/rcrowley/go-metrics"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

// Executor runs an action to completion.
type Executor interface {
	Dispatch(ctx context.Context, a action.Action) (action.Result, error)
}

// Dispatcher executes actions with the handlers of a Registry.
//
// A handler returning an incomplete result is invoked again with the same
// action until the result is complete; only the complete result is returned.
// Handler errors end the dispatch and are returned unchanged.
type Dispatcher struct {
	registry *Registry
	logger   logger.Logger
}

var _ Executor = (*Dispatcher)(nil)

func New(reg *Registry, opts ...Option) *Dispatcher {
	o := buildOptions(opts)
	return &Dispatcher{
		registry: reg,
		logger:   o.logger.Named("dispatch"),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, a action.Action) (action.Result, error) {
	return d.run(ctx, a, nil)
}

// run executes the handler loop and passes every produced result to emit.
func (d *Dispatcher) run(
	ctx context.Context,
	a action.Action,
	emit func(action.Result),
) (action.Result, error) {
	if a == nil {
		return nil, errx.New("action is nil",
			errx.WithCode(action.CodeNilAction),
			errx.WithType(errx.T_Validation),
		)
	}

	fn, ok := d.registry.lookup(a.Kind())
	if !ok {
		d.logger.WithContext(ctx).With("action_kind", a.Kind()).Debug("no handler bound")
		return nil, errx.New("no handler bound to action kind",
			errx.WithCode(action.CodeHandlerNotFound),
			errx.WithType(errx.T_NotFound),
			errx.WithDetails(errx.D{"kind": a.Kind()}),
		)
	}

	for step := 1; ; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := fn(ctx, a)
		if err != nil {
			return nil, err
		}
		if isNil(res) {
			return nil, nilResult(a.Kind())
		}

		if emit != nil {
			emit(res)
		}
		if res.IsComplete() {
			return res, nil
		}

		d.logger.WithContext(ctx).
			With("action_kind", a.Kind()).
			With("step", step).
			Debug("partial result, invoking handler again")
	}
}

type options struct {
	logger   logger.Logger
	registry metrics.Registry
	relay    Relay
}

// Option configures a dispatcher.
type Option func(*options)

// WithLogger sets the logger. Dispatchers log nothing by default.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the registry receiving dispatcher stats. Default is
// metrics.DefaultRegistry.
func WithMetrics(r metrics.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithRelay forwards every published result to r. Only Publishing uses it.
func WithRelay(r Relay) Option {
	return func(o *options) {
		o.relay = r
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   logger.NewNop(),
		registry: metrics.DefaultRegistry,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
