// Package actiontest provides sample actions and results for tests of the
// filter chain, the dispatch core and the transports.
package actiontest

import (
	"context"
	"sync"
	"time"

	"github.com/rise-and-shine/actionrpc/action"
)

// Kinds of the sample actions.
const (
	KindEcho   action.Kind = "test.echo"
	KindLookup action.Kind = "test.lookup"
	KindCount  action.Kind = "test.count"
	KindFail   action.Kind = "test.fail"
)

// Text is a plain, always complete result.
type Text struct {
	Value string `json:"value"`
}

// IsComplete implements action.Result.
func (*Text) IsComplete() bool { return true }

// Echo returns its text unchanged.
type Echo struct {
	Text string `json:"text"`
}

func (Echo) Kind() action.Kind { return KindEcho }

func (Echo) ResultOf(*Text) {}

// Value is a cacheable lookup result carrying its own expiry.
type Value struct {
	Key       string    `json:"key"`
	Data      string    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsComplete implements action.Result.
func (*Value) IsComplete() bool { return true }

// Lookup is both cacheable and mergeable.
type Lookup struct {
	Key string `json:"key"`
}

func (Lookup) Kind() action.Kind { return KindLookup }

func (Lookup) ResultOf(*Value) {}

func (Lookup) Mergeable() {}

// CacheExpiry reads the expiry stamped on the result by the handler.
func (Lookup) CacheExpiry(r action.Result) time.Time {
	if v, ok := r.(*Value); ok {
		return v.ExpiresAt
	}
	return time.Time{}
}

// Progress is a result that may be partial.
type Progress struct {
	Step  int  `json:"step"`
	Final bool `json:"final"`
}

// IsComplete implements action.Result.
func (p *Progress) IsComplete() bool { return p.Final }

// Count asks for a result produced in Steps partial steps.
type Count struct {
	Name  string `json:"name"`
	Steps int    `json:"steps"`
}

func (Count) Kind() action.Kind { return KindCount }

func (Count) ResultOf(*Progress) {}

// Fail always fails on the server.
type Fail struct {
	Reason string `json:"reason"`
}

func (Fail) Kind() action.Kind { return KindFail }

func (Fail) ResultOf(*Text) {}

// Unbound has no handler registered anywhere.
type Unbound struct{}

func (Unbound) Kind() action.Kind { return "test.unbound" }

// Sliced is mergeable but not comparable.
type Sliced struct {
	Keys []string
}

func (Sliced) Kind() action.Kind { return "test.sliced" }

func (Sliced) Mergeable() {}

// Recorder is an action.Invoker that records every action it receives and
// leaves the futures pending until the test resolves them.
type Recorder struct {
	mu      sync.Mutex
	calls   []action.Action
	futures []*action.Future
}

// Invoke implements action.Invoker.
func (r *Recorder) Invoke(_ context.Context, a action.Action) *action.Future {
	f := action.NewFuture()
	r.mu.Lock()
	r.calls = append(r.calls, a)
	r.futures = append(r.futures, f)
	r.mu.Unlock()
	return f
}

// Calls returns the recorded actions in arrival order.
func (r *Recorder) Calls() []action.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]action.Action(nil), r.calls...)
}

// Future returns the future handed out for the i-th call.
func (r *Recorder) Future(i int) *action.Future {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.futures[i]
}
