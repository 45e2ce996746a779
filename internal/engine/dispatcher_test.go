package engine

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/swaprouter/internal/domain"
	"github.com/alanyoungcy/swaprouter/internal/queue"
)

// recordingProcessor counts attempts, optionally failing the first failFirst
// Process calls, and signals done on the first success or Fail.
type recordingProcessor struct {
	mu        sync.Mutex
	attempts  []int
	failed    []int
	failFirst int
	block     chan struct{} // when non-nil, Process waits on it
	active    int
	maxActive int
	done      chan struct{}
}

func newRecordingProcessor(failFirst int) *recordingProcessor {
	return &recordingProcessor{
		failFirst: failFirst,
		done:      make(chan struct{}, 1),
	}
}

func (p *recordingProcessor) Process(ctx context.Context, job queue.Job) error {
	p.mu.Lock()
	p.attempts = append(p.attempts, job.Attempt)
	p.active++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
	n := len(p.attempts)
	block := p.block
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}

	p.mu.Lock()
	p.active--
	p.mu.Unlock()

	if n <= p.failFirst {
		return domain.ErrExecutionFailed
	}

	select {
	case p.done <- struct{}{}:
	default:
	}
	return nil
}

func (p *recordingProcessor) Fail(ctx context.Context, job queue.Job, cause error) {
	p.mu.Lock()
	p.failed = append(p.failed, job.Attempt)
	p.mu.Unlock()

	select {
	case p.done <- struct{}{}:
	default:
	}
}

func (p *recordingProcessor) snapshot() (attempts, failed []int, maxActive int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.attempts...), append([]int(nil), p.failed...), p.maxActive
}

func runDispatcher(t *testing.T, d *Dispatcher) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_ = d.Run(ctx)
	}()
	return func() {
		cancel()
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Fatal("dispatcher did not stop")
		}
	}
}

func waitDone(t *testing.T, p *recordingProcessor) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(3 * time.Second):
		t.Fatal("processor never reached a terminal outcome")
	}
}

func TestDispatcherRetriesWithIncreasingAttempts(t *testing.T) {
	q := queue.New()
	p := newRecordingProcessor(2) // fail attempts 1 and 2, succeed on 3
	d := NewDispatcher(q, p, Config{
		Workers:     2,
		RateLimit:   100,
		RateWindow:  time.Minute,
		MaxAttempts: 3,
		BackoffBase: 5 * time.Millisecond,
	}, slog.Default())

	stop := runDispatcher(t, d)
	defer stop()

	q.Enqueue(queue.Job{ID: "o1", Order: domain.Order{ID: "o1"}, Attempt: 1})
	waitDone(t, p)

	attempts, failed, _ := p.snapshot()
	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Empty(t, failed, "a job that eventually succeeds must never be failed")
}

func TestDispatcherExhaustedBudgetFailsOnce(t *testing.T) {
	q := queue.New()
	p := newRecordingProcessor(100) // never succeeds
	d := NewDispatcher(q, p, Config{
		Workers:     2,
		RateLimit:   100,
		RateWindow:  time.Minute,
		MaxAttempts: 3,
		BackoffBase: 5 * time.Millisecond,
	}, slog.Default())

	stop := runDispatcher(t, d)
	defer stop()

	q.Enqueue(queue.Job{ID: "o1", Order: domain.Order{ID: "o1"}, Attempt: 1})
	waitDone(t, p)

	attempts, failed, _ := p.snapshot()
	assert.Equal(t, []int{1, 2, 3}, attempts)
	require.Len(t, failed, 1, "exactly one terminal failure")
	assert.Equal(t, 3, failed[0])
}

func TestDispatcherBackoffDelaysRetry(t *testing.T) {
	q := queue.New()
	p := newRecordingProcessor(1)
	d := NewDispatcher(q, p, Config{
		Workers:     2,
		RateLimit:   100,
		RateWindow:  time.Minute,
		MaxAttempts: 2,
		BackoffBase: 80 * time.Millisecond,
	}, slog.Default())

	stop := runDispatcher(t, d)
	defer stop()

	start := time.Now()
	q.Enqueue(queue.Job{ID: "o1", Order: domain.Order{ID: "o1"}, Attempt: 1})
	waitDone(t, p)

	// The retry waits out base × 2^0 before running.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestDispatcherConcurrencyGate(t *testing.T) {
	q := queue.New()
	p := newRecordingProcessor(0)
	p.block = make(chan struct{})
	d := NewDispatcher(q, p, Config{
		Workers:     2,
		RateLimit:   100,
		RateWindow:  time.Minute,
		MaxAttempts: 1,
		BackoffBase: time.Millisecond,
	}, slog.Default())

	stop := runDispatcher(t, d)
	defer stop()

	for i := 0; i < 6; i++ {
		q.Enqueue(queue.Job{ID: "o", Order: domain.Order{ID: "o"}, Attempt: 1})
	}

	// Let the dispatcher admit what it can, then release the workers.
	time.Sleep(150 * time.Millisecond)
	close(p.block)

	// Wait for all six to finish.
	deadline := time.Now().Add(2 * time.Second)
	for {
		attempts, _, _ := p.snapshot()
		if len(attempts) == 6 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d of 6 jobs ran", len(attempts))
		}
		time.Sleep(10 * time.Millisecond)
	}

	_, _, maxActive := p.snapshot()
	assert.LessOrEqual(t, maxActive, 2, "concurrency gate must cap in-flight jobs")
}

func TestDispatcherRateGate(t *testing.T) {
	q := queue.New()
	p := newRecordingProcessor(0)
	d := NewDispatcher(q, p, Config{
		Workers:     10,
		RateLimit:   2,
		RateWindow:  time.Minute,
		MaxAttempts: 1,
		BackoffBase: time.Millisecond,
	}, slog.Default())

	stop := runDispatcher(t, d)
	defer stop()

	for i := 0; i < 5; i++ {
		q.Enqueue(queue.Job{ID: "o", Order: domain.Order{ID: "o"}, Attempt: 1})
	}

	time.Sleep(200 * time.Millisecond)

	attempts, _, _ := p.snapshot()
	assert.Len(t, attempts, 2, "only the rate window's worth of jobs may start")
	assert.GreaterOrEqual(t, q.Len(), 2, "unadmitted jobs stay queued")
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 10, cfg.Workers)
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateWindow)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.BackoffBase)
}

func TestDispatcherStopsOnQueueClose(t *testing.T) {
	q := queue.New()
	p := newRecordingProcessor(0)
	d := NewDispatcher(q, p, Config{Workers: 1, RateLimit: 10, RateWindow: time.Minute, MaxAttempts: 1, BackoffBase: time.Millisecond}, slog.Default())

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Run(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		assert.NoError(t, err, "queue close is a clean stop")
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not exit after queue close")
	}
}
