package filter

import (
	"context"
	"sync"

	"github.com/rcrowley/go-metrics"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

// Merging keeps at most one downstream call in flight per distinct mergeable
// action. Identical submissions made while a call is in flight share its
// future. The registry entry is dropped before the outcome is delivered, so a
// submission made from a waiter starts a fresh call.
type Merging struct {
	link

	mu     sync.Mutex
	active map[action.Action]*action.Future
	logger logger.Logger

	merged    metrics.Counter
	forwarded metrics.Counter
}

var _ Filter = (*Merging)(nil)

// NewMerging returns an empty merging filter.
func NewMerging(opts ...Option) *Merging {
	o := buildOptions(opts)
	return &Merging{
		active:    make(map[action.Action]*action.Future),
		logger:    o.logger.Named("filter.merging"),
		merged:    counter(MetricMergedCalls, o.registry),
		forwarded: counter(MetricForwarded, o.registry),
	}
}

func (m *Merging) Invoke(ctx context.Context, a action.Action) *action.Future {
	next, err := m.downstream()
	if err != nil {
		return action.Failed(err)
	}

	if _, ok := a.(action.Mergeable); !ok {
		return next.Invoke(ctx, a)
	}
	if err = action.EnsureComparable(a); err != nil {
		return action.Failed(err)
	}

	m.mu.Lock()
	if f, ok := m.active[a]; ok {
		m.mu.Unlock()
		m.merged.Inc(1)
		m.logger.WithContext(ctx).With("action_kind", a.Kind()).Debug("merged into in-flight call")
		return f
	}
	f := action.NewFuture()
	m.active[a] = f
	m.mu.Unlock()

	// The call is shared, so it must not end with the first caller.
	m.forwarded.Inc(1)
	next.Invoke(detach(ctx), a).Then(func(r action.Result, err error) {
		m.mu.Lock()
		if m.active[a] == f {
			delete(m.active, a)
		}
		m.mu.Unlock()

		f.Resolve(r, err)
	})
	return f
}

// InFlight returns the number of distinct actions awaiting an outcome.
func (m *Merging) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
