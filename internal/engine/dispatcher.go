package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/alanyoungcy/swaprouter/internal/domain"
	"github.com/alanyoungcy/swaprouter/internal/queue"
)

// Processor runs one attempt for a job and, when the dispatcher decides the
// failure is final, performs the terminal failed transition.
type Processor interface {
	Process(ctx context.Context, job queue.Job) error
	Fail(ctx context.Context, job queue.Job, cause error)
}

// Config holds the dispatcher's admission and retry parameters.
type Config struct {
	Workers     int           // concurrency gate: max jobs executing at once
	RateLimit   int           // rate gate: max job starts per window
	RateWindow  time.Duration // trailing window for the rate gate
	MaxAttempts int           // total attempts per order, including the first
	BackoffBase time.Duration // retry delay = base × 2^(attempt−1)
}

// withDefaults fills zero fields with the standard parameters.
func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 10
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 100
	}
	if c.RateWindow <= 0 {
		c.RateWindow = time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	return c
}

// Dispatcher pulls jobs from the queue and runs them on a bounded worker
// pool. A job is admitted only when both gates pass: a concurrency slot is
// free AND the trailing rate window has capacity. The two gates are
// independent; neither implies the other. Jobs that cannot be admitted
// simply remain queued.
type Dispatcher struct {
	queue  *queue.Queue
	runner Processor
	cfg    Config
	sem    *semaphore.Weighted
	rate   *queue.RateWindow
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher over q and runner.
func NewDispatcher(q *queue.Queue, runner Processor, cfg Config, logger *slog.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		queue:  q,
		runner: runner,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.Workers)),
		rate:   queue.NewRateWindow(cfg.RateLimit, cfg.RateWindow),
		logger: logger.With(slog.String("component", "dispatcher")),
	}
}

// Run is the dispatcher's admission loop. It blocks until the context is
// cancelled or the queue is closed, then waits for in-flight jobs to reach
// a terminal state before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started",
		slog.Int("workers", d.cfg.Workers),
		slog.Int("rate_limit", d.cfg.RateLimit),
		slog.Duration("rate_window", d.cfg.RateWindow),
	)
	defer d.logger.Info("dispatcher stopped")

	for {
		job, err := d.queue.Dequeue(ctx)
		if err != nil {
			d.wg.Wait()
			if err == domain.ErrQueueClosed {
				return nil
			}
			return err
		}

		// Concurrency gate first, then the rate gate. A job held here is
		// still logically queued: it has not started and consumes no rate
		// slot yet.
		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.queue.Enqueue(job)
			d.wg.Wait()
			return err
		}
		if err := d.rate.Wait(ctx); err != nil {
			d.sem.Release(1)
			d.queue.Enqueue(job)
			d.wg.Wait()
			return err
		}

		d.wg.Add(1)
		go func(job queue.Job) {
			defer d.wg.Done()
			defer d.sem.Release(1)
			d.process(ctx, job)
		}(job)
	}
}

// process runs one attempt and applies the retry policy: exponential
// backoff up to the attempt ceiling, then the single permanent failure.
func (d *Dispatcher) process(ctx context.Context, job queue.Job) {
	err := d.runner.Process(ctx, job)
	if err == nil {
		return
	}

	if ctx.Err() != nil {
		// Shutdown interrupted the attempt; without a durable broker the
		// job is lost with the process, which is acceptable for a
		// simulated venue.
		d.logger.Warn("attempt interrupted by shutdown",
			slog.String("order_id", job.Order.ID),
			slog.Int("attempt", job.Attempt),
		)
		return
	}

	if job.Attempt >= d.cfg.MaxAttempts {
		d.logger.Error("retry budget exhausted, failing order",
			slog.String("order_id", job.Order.ID),
			slog.Int("attempts", job.Attempt),
			slog.String("error", err.Error()),
		)
		d.runner.Fail(ctx, job, err)
		return
	}

	delay := d.cfg.BackoffBase << (job.Attempt - 1)
	d.logger.Warn("attempt failed, retry scheduled",
		slog.String("order_id", job.Order.ID),
		slog.Int("attempt", job.Attempt),
		slog.Duration("delay", delay),
		slog.String("error", err.Error()),
	)

	retry := queue.Job{
		ID:      job.ID,
		Order:   job.Order,
		Attempt: job.Attempt + 1,
	}
	retry.Order.Status = domain.OrderStatusPending
	d.queue.Schedule(retry, delay)
}
