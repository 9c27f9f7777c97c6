package main

import (
	"context"
	"sync"
	"time"
)

const tickInterval = 100 * time.Millisecond

// countdown keeps the progress of each distinct Countdown action. Equal
// actions dispatched concurrently share one countdown.
type countdown struct {
	mu        sync.Mutex
	remaining map[Countdown]int
}

func newCountdown() *countdown {
	return &countdown{remaining: make(map[Countdown]int)}
}

func (c *countdown) Execute(ctx context.Context, a Countdown) (*Tick, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(tickInterval):
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	left, ok := c.remaining[a]
	if !ok {
		left = a.From
	}
	left--

	if left <= 0 {
		delete(c.remaining, a)
		return &Tick{Remaining: 0}, nil
	}
	c.remaining[a] = left
	return &Tick{Remaining: left}, nil
}
