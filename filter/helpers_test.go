package filter_test

import (
	"sync"

	"github.com/rise-and-shine/actionrpc/action"
)

// manualScheduler parks flushes until the test runs them.
type manualScheduler struct {
	mu        sync.Mutex
	pending   []func()
	scheduled int
}

func (s *manualScheduler) Schedule(flush func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, flush)
	s.scheduled++
}

func (s *manualScheduler) Run() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, flush := range pending {
		flush()
	}
}

func (s *manualScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled
}

// outcome captures what a future delivered.
type outcome struct {
	result action.Result
	err    error
}

func collect(f *action.Future) *outcome {
	o := &outcome{}
	f.Then(func(r action.Result, err error) {
		o.result, o.err = r, err
	})
	return o
}
