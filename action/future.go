package action

import (
	"context"
	"sync"
)

// Future is a single-assignment cell holding the outcome of one call.
//
// The first Resolve wins; later calls are ignored. Continuations registered
// with Then run in registration order before Done is closed, so a
// continuation registered by a filter always observes the outcome before any
// goroutine blocked in Wait.
type Future struct {
	mu       sync.Mutex
	resolved bool
	result   Result
	err      error
	thens    []func(Result, error)
	done     chan struct{}
}

// NewFuture returns an unresolved Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a Future already holding the given outcome.
func Resolved(r Result, err error) *Future {
	f := NewFuture()
	f.Resolve(r, err)
	return f
}

// Failed returns a Future already holding err.
func Failed(err error) *Future {
	return Resolved(nil, err)
}

// Resolve stores the outcome and runs the registered continuations.
// It reports whether this call performed the resolution.
func (f *Future) Resolve(r Result, err error) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.resolved = true
	f.result, f.err = r, err
	thens := f.thens
	f.thens = nil
	f.mu.Unlock()

	// A panicking continuation still releases waiters.
	defer close(f.done)
	for _, fn := range thens {
		fn(r, err)
	}

	return true
}

// Then registers fn to run with the outcome. If the future is already
// resolved fn runs immediately on the calling goroutine.
func (f *Future) Then(fn func(Result, error)) {
	f.mu.Lock()
	if f.resolved {
		r, err := f.result, f.err
		f.mu.Unlock()
		fn(r, err)
		return
	}
	f.thens = append(f.thens, fn)
	f.mu.Unlock()
}

// Done is closed once the outcome is available and all continuations ran.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// IsResolved reports whether an outcome has been stored.
func (f *Future) IsResolved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved
}

// Wait blocks until the outcome is available or ctx ends.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.Outcome()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Outcome returns the stored outcome. Before resolution it returns nil, nil.
func (f *Future) Outcome() (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}
