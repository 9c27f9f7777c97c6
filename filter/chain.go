package filter

import (
	"context"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/actionrpc/action"
)

// Chain composes filters so that an action flows through filters[0] first
// and filters[len-1] last before reaching the downstream invoker.
type Chain struct {
	link
	filters []Filter
}

var _ Filter = (*Chain)(nil)

// NewChain validates the filters. Each filter must be non-nil and not yet
// initialized, since the chain owns its wiring.
func NewChain(filters ...Filter) (*Chain, error) {
	for i, f := range filters {
		if f == nil {
			return nil, errx.New("chain filter is nil",
				errx.WithCode(action.CodeInvalidFilter),
				errx.WithType(errx.T_Validation),
				errx.WithDetails(errx.D{"position": i}),
			)
		}
		if f.IsInitialized() {
			return nil, errx.New("chain filter is already initialized",
				errx.WithCode(action.CodeAlreadyInitialized),
				errx.WithType(errx.T_Validation),
				errx.WithDetails(errx.D{"position": i}),
			)
		}
	}

	return &Chain{filters: filters}, nil
}

// Init links every filter to its successor and the last one to next.
func (c *Chain) Init(next action.Invoker) error {
	if err := c.link.Init(next); err != nil {
		return err
	}

	for i := len(c.filters) - 1; i >= 0; i-- {
		target := next
		if i < len(c.filters)-1 {
			target = c.filters[i+1]
		}
		if err := c.filters[i].Init(target); err != nil {
			return errx.Wrap(err)
		}
	}
	return nil
}

// Invoke hands a to the first filter, or straight downstream for an empty chain.
func (c *Chain) Invoke(ctx context.Context, a action.Action) *action.Future {
	next, err := c.downstream()
	if err != nil {
		return action.Failed(err)
	}

	if len(c.filters) == 0 {
		return next.Invoke(ctx, a)
	}
	return c.filters[0].Invoke(ctx, a)
}

// Len returns the number of filters.
func (c *Chain) Len() int {
	return len(c.filters)
}
