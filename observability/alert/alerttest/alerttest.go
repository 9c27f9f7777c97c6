// Package alerttest provides a recording alert.Provider for tests.
package alerttest

import (
	"context"
	"sync"
	"time"

	"github.com/rise-and-shine/actionrpc/observability/alert"
)

// Alert is one recorded SendError call.
type Alert struct {
	Code      string
	Message   string
	Operation string
	Details   map[string]string
}

// Recorder records alerts and can be told to fail.
type Recorder struct {
	Err error

	mu     sync.Mutex
	alerts []Alert
	sent   chan struct{}
	closed bool
}

var _ alert.Provider = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{sent: make(chan struct{}, 64)}
}

func (r *Recorder) SendError(_ context.Context, errCode, msg, operation string, details map[string]string) error {
	r.mu.Lock()
	r.alerts = append(r.alerts, Alert{Code: errCode, Message: msg, Operation: operation, Details: details})
	r.mu.Unlock()

	r.sent <- struct{}{}
	return r.Err
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Alerts returns the recorded alerts in arrival order.
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// WaitFor blocks until n more alerts arrived or d passed. It reports whether
// they arrived.
func (r *Recorder) WaitFor(n int, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for range n {
		select {
		case <-r.sent:
		case <-timer.C:
			return false
		}
	}
	return true
}
