// Package actioncache stores results of cacheable actions until the expiry
// each action computes for its result.
package actioncache

import (
	"context"
	"time"

	"github.com/rise-and-shine/actionrpc/action"
)

// Cache maps cacheable actions to results. Lookups use action equality.
//
// An entry is valid while the current time is before its expiry. Expired
// entries are never returned and are evicted lazily; a later Get never brings
// them back.
type Cache interface {
	// Get returns the valid result stored for a.
	Get(ctx context.Context, a action.Cacheable) (action.Result, bool, error)
	// Put stores r for a, replacing any previous entry.
	Put(ctx context.Context, a action.Cacheable, r action.Result) error
	// Remove deletes the entry for a. Missing entries are ignored.
	Remove(ctx context.Context, a action.Cacheable) error
	// Actions lists the actions holding valid entries.
	Actions(ctx context.Context) ([]action.Cacheable, error)
}

const defaultKeyPrefix = "actioncache:"

// Clock returns the current time.
type Clock func() time.Time

type options struct {
	now    Clock
	prefix string
}

// Option configures a cache implementation.
type Option func(*options)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now Clock) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithKeyPrefix sets the key namespace of a shared cache. Default is "actioncache:".
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
