// Package filter implements the client-side filter chain that sits between
// callers and the invoke primitive of a transport.
//
// A Filter intercepts actions, may answer, combine or defer them, and forwards
// the rest to the next Invoker it was initialized with. The stock filters are
// Caching, Merging and Batching; Chain composes any number of filters into a
// single Filter. Every filter guards its own state, delivers outcomes through
// action.Future and never holds its lock while delivering.
package filter

import (
	"context"
	"sync"

	"github.com/code19m/errx"
	"github.com/rcrowley/go-metrics"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

// Filter is an Invoker that forwards to a downstream Invoker set once by Init.
type Filter interface {
	action.Invoker

	// Init sets the downstream invoker. It may be called only once.
	Init(next action.Invoker) error
	// IsInitialized reports whether Init succeeded.
	IsInitialized() bool
}

// link holds the downstream invoker shared by all filters.
type link struct {
	mu   sync.RWMutex
	next action.Invoker
}

func (l *link) Init(next action.Invoker) error {
	if next == nil {
		return errx.New("downstream invoker is nil",
			errx.WithCode(action.CodeInvalidFilter),
			errx.WithType(errx.T_Validation),
		)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.next != nil {
		return errx.New("filter is already initialized",
			errx.WithCode(action.CodeAlreadyInitialized),
			errx.WithType(errx.T_Internal),
		)
	}
	l.next = next
	return nil
}

func (l *link) IsInitialized() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.next != nil
}

func (l *link) downstream() (action.Invoker, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.next == nil {
		return nil, errx.New("filter is not initialized",
			errx.WithCode(action.CodeNotInitialized),
			errx.WithType(errx.T_Internal),
		)
	}
	return l.next, nil
}

type options struct {
	logger       logger.Logger
	registry     metrics.Registry
	maxBatchSize int
}

// Option configures a filter.
type Option func(*options)

// WithLogger sets the logger. Filters log nothing by default.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the registry receiving filter counters. Default is
// metrics.DefaultRegistry.
func WithMetrics(r metrics.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithMaxBatchSize makes Batching flush as soon as n actions are queued.
// Zero means no limit.
func WithMaxBatchSize(n int) Option {
	return func(o *options) {
		o.maxBatchSize = n
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

// detach keeps the values of ctx for work that outlives the caller.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
