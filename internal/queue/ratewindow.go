package queue

import (
	"context"
	"sync"
	"time"
)

// waitPollInterval is the fixed interval at which Wait re-checks the window.
const waitPollInterval = 50 * time.Millisecond

// RateWindow is a sliding-window counter limiting job starts to at most
// limit within the trailing window. A slot is consumed at admission time and
// expires only when it ages out of the window; execution duration never
// releases it early.
type RateWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	starts []time.Time
}

// NewRateWindow creates a RateWindow allowing limit starts per window.
func NewRateWindow(limit int, window time.Duration) *RateWindow {
	return &RateWindow{limit: limit, window: window}
}

// Allow reports whether a start is permitted right now. Permitted starts
// are counted against the window.
func (rw *RateWindow) Allow() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	now := time.Now()
	rw.prune(now)
	if len(rw.starts) >= rw.limit {
		return false
	}
	rw.starts = append(rw.starts, now)
	return true
}

// Wait blocks until a start is permitted, polling at a fixed interval. It
// returns the context error if ctx is cancelled first.
func (rw *RateWindow) Wait(ctx context.Context) error {
	for {
		if rw.Allow() {
			return nil
		}

		timer := time.NewTimer(waitPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Used returns the number of starts currently counted in the window.
func (rw *RateWindow) Used() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.prune(time.Now())
	return len(rw.starts)
}

// prune drops starts that have aged out of the window.
// Caller must hold rw.mu.
func (rw *RateWindow) prune(now time.Time) {
	cutoff := now.Add(-rw.window)
	i := 0
	for i < len(rw.starts) && !rw.starts[i].After(cutoff) {
		i++
	}
	if i > 0 {
		rw.starts = append(rw.starts[:0], rw.starts[i:]...)
	}
}
