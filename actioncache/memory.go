package actioncache

import (
	"context"
	"sync"
	"time"

	"github.com/rise-and-shine/actionrpc/action"
)

type entry struct {
	action action.Cacheable
	result action.Result
	expiry time.Time
}

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.Mutex
	now     Clock
	entries map[action.Action]entry
}

// NewMemory returns an empty in-process cache. Only WithClock applies.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{
		now:     o.now,
		entries: make(map[action.Action]entry),
	}
}

func (m *Memory) Get(_ context.Context, a action.Cacheable) (action.Result, bool, error) {
	if err := action.EnsureComparable(a); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[a]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiry) {
		delete(m.entries, a)
		return nil, false, nil
	}
	return e.result, true, nil
}

// Put stores r for a. A result that is already expired replaces nothing and
// removes the previous entry.
func (m *Memory) Put(_ context.Context, a action.Cacheable, r action.Result) error {
	if err := action.EnsureComparable(a); err != nil {
		return err
	}

	expiry := a.CacheExpiry(r)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.now().Before(expiry) {
		delete(m.entries, a)
		return nil
	}
	m.entries[a] = entry{action: a, result: r, expiry: expiry}
	return nil
}

func (m *Memory) Remove(_ context.Context, a action.Cacheable) error {
	if err := action.EnsureComparable(a); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.entries, a)
	m.mu.Unlock()
	return nil
}

// Actions evicts expired entries and lists the rest.
func (m *Memory) Actions(_ context.Context) ([]action.Cacheable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	out := make([]action.Cacheable, 0, len(m.entries))
	for k, e := range m.entries {
		if !now.Before(e.expiry) {
			delete(m.entries, k)
			continue
		}
		out = append(out, e.action)
	}
	return out, nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
