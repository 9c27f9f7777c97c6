package dispatch_test

import (
	"context"
	"sync"
	"testing"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/action/actiontest"
	"github.com/rise-and-shine/actionrpc/dispatch"
	"github.com/rise-and-shine/actionrpc/handler"
)

// counter produces Count results one step per invocation. Progress is keyed
// by action value, so identical actions share their progress.
type counter struct {
	mu    sync.Mutex
	steps map[actiontest.Count]int
	calls int
}

func (c *counter) Execute(_ context.Context, a actiontest.Count) (*actiontest.Progress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.steps == nil {
		c.steps = make(map[actiontest.Count]int)
	}
	c.calls++
	c.steps[a]++
	step := c.steps[a]
	if step >= a.Steps {
		delete(c.steps, a)
		return &actiontest.Progress{Step: step, Final: true}, nil
	}
	return &actiontest.Progress{Step: step}, nil
}

func (c *counter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func echoHandler() handler.Func[actiontest.Echo, *actiontest.Text] {
	return func(_ context.Context, a actiontest.Echo) (*actiontest.Text, error) {
		return &actiontest.Text{Value: a.Text}, nil
	}
}

func failHandler() handler.Func[actiontest.Fail, *actiontest.Text] {
	return func(_ context.Context, a actiontest.Fail) (*actiontest.Text, error) {
		return nil, errx.New(a.Reason, errx.WithCode("FAILED_ON_PURPOSE"), errx.WithType(errx.T_Conflict))
	}
}

func newRegistry(t *testing.T, c *counter) *dispatch.Registry {
	t.Helper()

	reg := dispatch.NewRegistry()
	require.NoError(t, dispatch.Bind(reg, echoHandler()))
	require.NoError(t, dispatch.Bind(reg, failHandler()))
	require.NoError(t, dispatch.Bind[actiontest.Count, *actiontest.Progress](reg, c))
	return reg
}

func steps(results []action.Result) []int {
	out := make([]int, 0, len(results))
	for _, r := range results {
		out = append(out, r.(*actiontest.Progress).Step)
	}
	return out
}
