package filter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/action/actiontest"
	"github.com/rise-and-shine/actionrpc/filter"
)

func newMerging(t *testing.T) (*filter.Merging, *actiontest.Recorder, metrics.Registry) {
	t.Helper()

	registry := metrics.NewRegistry()
	rec := &actiontest.Recorder{}
	m := filter.NewMerging(filter.WithMetrics(registry))
	require.NoError(t, m.Init(rec))
	return m, rec, registry
}

func TestMerging_IdenticalActionsShareOneCall(t *testing.T) {
	m, rec, registry := newMerging(t)

	first := m.Invoke(t.Context(), actiontest.Lookup{Key: "k"})
	second := m.Invoke(t.Context(), actiontest.Lookup{Key: "k"})

	require.Len(t, rec.Calls(), 1)
	assert.Same(t, first, second)
	assert.Equal(t, 1, m.InFlight())

	want := &actiontest.Value{Key: "k", Data: "v"}
	rec.Future(0).Resolve(want, nil)

	for _, f := range []*action.Future{first, second} {
		res, err := f.Outcome()
		require.NoError(t, err)
		assert.Same(t, want, res)
	}
	assert.Equal(t, 0, m.InFlight())
	assert.Equal(t, int64(1), metrics.GetOrRegisterCounter(filter.MetricMergedCalls, registry).Count())
}

func TestMerging_DistinctActionsForwardSeparately(t *testing.T) {
	m, rec, _ := newMerging(t)

	m.Invoke(t.Context(), actiontest.Lookup{Key: "a"})
	m.Invoke(t.Context(), actiontest.Lookup{Key: "b"})

	assert.Len(t, rec.Calls(), 2)
	assert.Equal(t, 2, m.InFlight())
}

func TestMerging_FailureReachesAllWaiters(t *testing.T) {
	m, rec, _ := newMerging(t)

	first := collect(m.Invoke(t.Context(), actiontest.Lookup{Key: "k"}))
	second := collect(m.Invoke(t.Context(), actiontest.Lookup{Key: "k"}))

	boom := errors.New("lookup failed")
	rec.Future(0).Resolve(nil, boom)

	assert.Equal(t, boom, first.err)
	assert.Equal(t, boom, second.err)
	assert.Equal(t, 0, m.InFlight())
}

func TestMerging_EntryRemovedBeforeDelivery(t *testing.T) {
	m, rec, _ := newMerging(t)

	f := m.Invoke(t.Context(), actiontest.Lookup{Key: "k"})

	var resubmitted *action.Future
	f.Then(func(action.Result, error) {
		resubmitted = m.Invoke(t.Context(), actiontest.Lookup{Key: "k"})
	})

	rec.Future(0).Resolve(&actiontest.Value{}, nil)

	require.NotNil(t, resubmitted)
	assert.NotSame(t, f, resubmitted)
	assert.Len(t, rec.Calls(), 2, "a submission from a waiter starts a new call")
}

func TestMerging_PassesThroughNonMergeable(t *testing.T) {
	m, rec, _ := newMerging(t)

	m.Invoke(t.Context(), actiontest.Echo{Text: "x"})
	m.Invoke(t.Context(), actiontest.Echo{Text: "x"})

	assert.Len(t, rec.Calls(), 2)
	assert.Equal(t, 0, m.InFlight())
}

func TestMerging_RejectsNonComparable(t *testing.T) {
	m, rec, _ := newMerging(t)

	_, err := m.Invoke(t.Context(), actiontest.Sliced{Keys: []string{"a"}}).Outcome()

	assert.True(t, errx.IsCodeIn(err, action.CodeActionNotComparable))
	assert.Empty(t, rec.Calls())
}

func TestMerging_SharedCallOutlivesFirstCaller(t *testing.T) {
	release := make(chan struct{})
	want := &actiontest.Value{Key: "k", Data: "v"}

	m := filter.NewMerging()
	require.NoError(t, m.Init(action.InvokerFunc(func(ctx context.Context, _ action.Action) *action.Future {
		f := action.NewFuture()
		go func() {
			select {
			case <-ctx.Done():
				f.Resolve(nil, ctx.Err())
			case <-release:
				f.Resolve(want, nil)
			}
		}()
		return f
	})))

	firstCtx, cancelFirst := context.WithCancel(t.Context())
	first := m.Invoke(firstCtx, actiontest.Lookup{Key: "k"})
	second := m.Invoke(t.Context(), actiontest.Lookup{Key: "k"})
	assert.Same(t, first, second)

	cancelFirst()
	time.Sleep(10 * time.Millisecond)
	close(release)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	res, err := second.Wait(ctx)
	require.NoError(t, err)
	assert.Same(t, want, res)
}
