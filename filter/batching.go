package filter

import (
	"context"
	"sync"

	"github.com/code19m/errx"
	"github.com/rcrowley/go-metrics"
	"github.com/samber/lo"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/observability/logger"
)

type queuedAction struct {
	ctx    context.Context //nolint:containedctx // carried until the batch is sent
	action action.Action
	future *action.Future
}

// Batching collects actions submitted before a scheduled flush and sends
// them downstream as one BatchAction. Outcome i of the BatchResult resolves
// the future of the i-th queued action. A downstream failure, or a result
// whose size differs from the batch, fails every queued action in queue order.
type Batching struct {
	link

	mu        sync.Mutex
	queue     []queuedAction
	scheduled bool // a scheduled flush has not run yet
	scheduler Scheduler
	maxSize   int
	logger    logger.Logger

	sizes    metrics.Histogram
	failures metrics.Counter
}

var _ Filter = (*Batching)(nil)

// NewBatching returns a batching filter flushing according to scheduler.
func NewBatching(scheduler Scheduler, opts ...Option) *Batching {
	o := buildOptions(opts)
	return &Batching{
		scheduler: scheduler,
		maxSize:   o.maxBatchSize,
		logger:    o.logger.Named("filter.batching"),
		sizes:     histogram(MetricBatchSize, o.registry),
		failures:  counter(MetricBatchFailures, o.registry),
	}
}

// Invoke queues a and schedules a flush unless one is already outstanding.
// An early flush on reaching the max batch size leaves an outstanding
// scheduled flush in place; it sends whatever is queued when it runs.
func (b *Batching) Invoke(ctx context.Context, a action.Action) *action.Future {
	if _, err := b.downstream(); err != nil {
		return action.Failed(err)
	}

	f := action.NewFuture()

	b.mu.Lock()
	b.queue = append(b.queue, queuedAction{ctx: ctx, action: a, future: f})
	full := b.maxSize > 0 && len(b.queue) >= b.maxSize
	schedule := !full && !b.scheduled
	if schedule {
		b.scheduled = true
	}
	b.mu.Unlock()

	if full {
		b.Flush()
		return f
	}
	if schedule {
		b.scheduler.Schedule(b.scheduledFlush)
	}
	return f
}

func (b *Batching) scheduledFlush() {
	b.mu.Lock()
	b.scheduled = false
	b.mu.Unlock()

	b.Flush()
}

// Flush sends every queued action as one batch. Flushing an empty queue does
// nothing. When Flush returns the queue is empty.
func (b *Batching) Flush() {
	b.mu.Lock()
	queued := b.queue
	b.queue = nil
	b.mu.Unlock()

	if len(queued) == 0 {
		return
	}

	ctx := detach(queued[0].ctx)

	next, err := b.downstream()
	if err != nil {
		b.deliver(ctx, queued, nil, err)
		return
	}

	b.sizes.Update(int64(len(queued)))

	batch := action.BatchAction{
		Actions: lo.Map(queued, func(q queuedAction, _ int) action.Action { return q.action }),
	}
	next.Invoke(ctx, batch).Then(func(r action.Result, err error) {
		b.deliver(ctx, queued, r, err)
	})
}

// Pending returns the number of queued actions.
func (b *Batching) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *Batching) deliver(ctx context.Context, queued []queuedAction, r action.Result, err error) {
	if err == nil {
		br, ok := r.(*action.BatchResult)
		switch {
		case !ok || br == nil:
			err = countMismatch(len(queued), -1)
		case len(br.Outcomes) != len(queued):
			err = countMismatch(len(queued), len(br.Outcomes))
		default:
			for i, q := range queued {
				q.future.Resolve(br.Outcomes[i].Result, br.Outcomes[i].Err)
			}
			return
		}
	}

	b.failures.Inc(1)
	b.logger.WithContext(ctx).With("batch_size", len(queued)).Warnx(err)

	for _, q := range queued {
		q.future.Resolve(nil, err)
	}
}

func countMismatch(expected, actual int) error {
	return errx.New("batch result count does not match the batch",
		errx.WithCode(action.CodeBatchCountMismatch),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(errx.D{
			"expected": expected,
			"actual":   actual,
		}),
	)
}
