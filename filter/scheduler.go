package filter

import (
	"time"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/actionrpc/action"
)

// Scheduler decides when a pending batch is flushed. Schedule is called at
// most once per pending flush and must eventually run flush exactly once.
type Scheduler interface {
	Schedule(flush func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(flush func())

// Schedule calls f(flush).
func (f SchedulerFunc) Schedule(flush func()) {
	f(flush)
}

// Immediate flushes synchronously, producing one batch per submission.
func Immediate() Scheduler {
	return SchedulerFunc(func(flush func()) {
		flush()
	})
}

// Deferred flushes on a new goroutine, after the submitting goroutine yields.
// Submissions made back to back end up in the same batch.
func Deferred() Scheduler {
	return SchedulerFunc(func(flush func()) {
		go flush()
	})
}

// Delayed flushes a fixed delay after the first queued submission.
func Delayed(d time.Duration) (Scheduler, error) {
	if d < 0 {
		return nil, errx.New("batch delay must not be negative",
			errx.WithCode(action.CodeInvalidFilter),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"delay": d.String()}),
		)
	}

	return SchedulerFunc(func(flush func()) {
		time.AfterFunc(d, flush)
	}), nil
}
