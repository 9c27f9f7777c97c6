package dispatch

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/code19m/errx"
	"github.com/rcrowley/go-metrics"
	"github.com/samber/lo"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/meta"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

// Metric names registered by Publishing.
const (
	MetricPublished     = "dispatch.published"
	MetricSubscriptions = "dispatch.subscriptions"
)

// SubscriptionID identifies a subscription. Ids are never reused.
type SubscriptionID uint64

func (id SubscriptionID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Predicate selects the results a subscription receives.
type Predicate func(a action.Action, r action.Result) bool

// MatchAll accepts every result.
func MatchAll() Predicate {
	return func(action.Action, action.Result) bool { return true }
}

// MatchKinds accepts results of actions of the given kinds.
func MatchKinds(kinds ...action.Kind) Predicate {
	set := lo.SliceToMap(kinds, func(k action.Kind) (action.Kind, struct{}) {
		return k, struct{}{}
	})
	return func(a action.Action, _ action.Result) bool {
		_, ok := set[a.Kind()]
		return ok
	}
}

// Relay receives every published result, for fan-out beyond in-process
// subscribers. Errors are logged and never reach the dispatch.
type Relay interface {
	Relay(ctx context.Context, a action.Action, r action.Result) error
}

// Notification is one published result together with the action that
// produced it.
type Notification struct {
	Action action.Action
	Result action.Result
}

type subscription struct {
	mu     sync.Mutex
	match  Predicate
	buffer []Notification
	waiter chan []Notification
	closed bool
}

// offer appends r when it matches and hands the buffer to a parked waiter.
func (s *subscription) offer(a action.Action, r action.Result) bool {
	if !s.match(a, r) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.buffer = append(s.buffer, Notification{Action: a, Result: r})
	if s.waiter != nil {
		s.waiter <- s.buffer
		s.buffer = nil
		s.waiter = nil
	}
	return true
}

// release wakes a parked waiter with an empty list. Must hold s.mu.
func (s *subscription) release() {
	if s.waiter != nil {
		s.waiter <- []Notification{}
		s.waiter = nil
	}
}

// Publishing is a Dispatcher that also publishes every intermediate and
// final result, in production order, to the active subscriptions whose
// predicate matches. Errors are never published.
type Publishing struct {
	core   *Dispatcher
	logger logger.Logger
	relay  Relay

	mu     sync.RWMutex
	subs   map[SubscriptionID]*subscription
	nextID atomic.Uint64

	published metrics.Counter
	active    metrics.Gauge
}

var _ Executor = (*Publishing)(nil)

func NewPublishing(reg *Registry, opts ...Option) *Publishing {
	o := buildOptions(opts)
	return &Publishing{
		core:      New(reg, opts...),
		logger:    o.logger.Named("dispatch.publishing"),
		relay:     o.relay,
		subs:      make(map[SubscriptionID]*subscription),
		published: metrics.GetOrRegisterCounter(MetricPublished, o.registry),
		active:    metrics.GetOrRegisterGauge(MetricSubscriptions, o.registry),
	}
}

func (p *Publishing) Dispatch(ctx context.Context, a action.Action) (action.Result, error) {
	return p.core.run(ctx, a, func(r action.Result) {
		p.publish(ctx, a, r)
	})
}

// Subscribe registers a subscription with an empty buffer. A nil match
// accepts every result.
func (p *Publishing) Subscribe(match Predicate) SubscriptionID {
	if match == nil {
		match = MatchAll()
	}

	id := SubscriptionID(p.nextID.Add(1))

	p.mu.Lock()
	p.subs[id] = &subscription{match: match}
	p.active.Update(int64(len(p.subs)))
	p.mu.Unlock()

	return id
}

// Check returns the results buffered for id, or parks until one is published.
//
// A waiter already parked on the same id is released with an empty list. A
// cancelled subscription also releases its waiter with an empty list. When ctx
// ends first Check returns ctx.Err(), unless results were handed over in the
// meantime, in which case they are returned.
func (p *Publishing) Check(ctx context.Context, id SubscriptionID) ([]action.Result, error) {
	ns, err := p.CheckNotifications(ctx, id)
	if err != nil {
		return nil, err
	}
	return lo.Map(ns, func(n Notification, _ int) action.Result { return n.Result }), nil
}

// CheckNotifications is Check that also returns the producing actions.
func (p *Publishing) CheckNotifications(ctx context.Context, id SubscriptionID) ([]Notification, error) {
	sub, err := p.lookup(id)
	if err != nil {
		return nil, err
	}

	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return nil, invalidSubscription(id)
	}
	if len(sub.buffer) > 0 {
		out := sub.buffer
		sub.buffer = nil
		sub.mu.Unlock()
		return out, nil
	}
	sub.release()
	waiter := make(chan []Notification, 1)
	sub.waiter = waiter
	sub.mu.Unlock()

	select {
	case out := <-waiter:
		return out, nil
	case <-ctx.Done():
	}

	sub.mu.Lock()
	if sub.waiter == waiter {
		sub.waiter = nil
		sub.mu.Unlock()
		return nil, ctx.Err()
	}
	sub.mu.Unlock()

	// Handed over between ctx.Done and the lock; the value is already buffered.
	return <-waiter, nil
}

// Cancel removes the subscription and releases a parked waiter with an empty
// list. The id is invalid afterwards.
func (p *Publishing) Cancel(id SubscriptionID) error {
	p.mu.Lock()
	sub, ok := p.subs[id]
	if ok {
		delete(p.subs, id)
		p.active.Update(int64(len(p.subs)))
	}
	p.mu.Unlock()

	if !ok {
		return invalidSubscription(id)
	}

	sub.mu.Lock()
	sub.closed = true
	sub.buffer = nil
	sub.release()
	sub.mu.Unlock()
	return nil
}

func (p *Publishing) publish(ctx context.Context, a action.Action, r action.Result) {
	p.mu.RLock()
	subs := lo.Values(p.subs)
	p.mu.RUnlock()

	for _, sub := range subs {
		if sub.offer(a, r) {
			p.published.Inc(1)
		}
	}

	if p.relay == nil {
		return
	}
	if err := p.relay.Relay(ctx, a, r); err != nil {
		p.logger.WithContext(ctx).With("action_kind", a.Kind()).Warnx(err)
	}
}

func (p *Publishing) lookup(id SubscriptionID) (*subscription, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sub, ok := p.subs[id]
	if !ok {
		return nil, invalidSubscription(id)
	}
	return sub, nil
}

func invalidSubscription(id SubscriptionID) error {
	return errx.New("subscription does not exist",
		errx.WithCode(action.CodeInvalidSubscription),
		errx.WithType(errx.T_NotFound),
		errx.WithDetails(errx.D{string(meta.SubscriptionID): id.String()}),
	)
}
