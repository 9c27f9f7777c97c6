package alert

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type cooldownKey struct {
	operation string
	code      string
}

type cooldownState struct {
	sentAt     time.Time
	suppressed int
}

// cooldownProvider forwards at most one alert per operation and code within
// the cooldown window. The next forwarded alert carries how many were
// suppressed in between.
type cooldownProvider struct {
	next     Provider
	cooldown time.Duration
	now      func() time.Time

	mu    sync.Mutex
	state map[cooldownKey]*cooldownState
}

// WithCooldown wraps p so that repeated alerts are suppressed for d.
func WithCooldown(p Provider, d time.Duration) Provider {
	return newCooldown(p, d, time.Now)
}

func newCooldown(p Provider, d time.Duration, now func() time.Time) *cooldownProvider {
	return &cooldownProvider{
		next:     p,
		cooldown: d,
		now:      now,
		state:    make(map[cooldownKey]*cooldownState),
	}
}

func (c *cooldownProvider) SendError(
	ctx context.Context,
	errCode, msg, operation string,
	details map[string]string,
) error {
	key := cooldownKey{operation: operation, code: errCode}
	now := c.now()

	c.mu.Lock()
	st, ok := c.state[key]
	if ok && now.Sub(st.sentAt) < c.cooldown {
		st.suppressed++
		c.mu.Unlock()
		return nil
	}
	suppressed := 0
	if ok {
		suppressed = st.suppressed
	}
	c.state[key] = &cooldownState{sentAt: now}
	c.mu.Unlock()

	if suppressed > 0 {
		withCount := make(map[string]string, len(details)+1)
		for k, v := range details {
			withCount[k] = v
		}
		withCount["suppressed_since_last"] = strconv.Itoa(suppressed)
		details = withCount
	}

	return c.next.SendError(ctx, errCode, msg, operation, details)
}

func (c *cooldownProvider) Close() error {
	return c.next.Close()
}
