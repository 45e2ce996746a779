// Package queue provides the in-process job queue feeding the dispatcher:
// a FIFO of runnable jobs plus a delay heap for scheduled retries, and the
// sliding-window counter used as the job-start rate gate.
package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/swaprouter/internal/domain"
)

// Job is one unit of work: a single processing attempt for an order.
// Attempt is 1-based; retries carry the same order with an incremented
// attempt and a ReadyAt in the future.
type Job struct {
	ID      string
	Order   domain.Order
	Attempt int
	ReadyAt time.Time
}

// Queue holds pending and scheduled-retry jobs. It is safe for concurrent
// enqueue and dequeue. Jobs are never dropped: a job leaves the queue only
// by being dequeued or by Close discarding the remainder at shutdown.
type Queue struct {
	mu      sync.Mutex
	pending []Job
	delayed jobHeap
	notify  chan struct{}
	closed  bool
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Enqueue appends a job to the runnable FIFO.
func (q *Queue) Enqueue(job Job) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, job)
	q.mu.Unlock()
	q.wake()
}

// Schedule enqueues a job that becomes runnable only after delay elapses.
func (q *Queue) Schedule(job Job, delay time.Duration) {
	job.ReadyAt = time.Now().Add(delay)
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	heap.Push(&q.delayed, job)
	q.mu.Unlock()
	q.wake()
}

// Dequeue blocks until a runnable job is available and returns it. Delayed
// jobs are promoted to the runnable FIFO once their ReadyAt has passed.
// Returns domain.ErrQueueClosed after Close, or the context error on
// cancellation.
func (q *Queue) Dequeue(ctx context.Context) (Job, error) {
	for {
		q.mu.Lock()
		q.promote(time.Now())

		if len(q.pending) > 0 {
			job := q.pending[0]
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return job, nil
		}
		if q.closed {
			q.mu.Unlock()
			return Job{}, domain.ErrQueueClosed
		}

		// Sleep until the earliest delayed job matures, a new job arrives,
		// or the context is cancelled.
		var timerC <-chan time.Time
		var timer *time.Timer
		if q.delayed.Len() > 0 {
			timer = time.NewTimer(time.Until(q.delayed[0].ReadyAt))
			timerC = timer.C
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return Job{}, ctx.Err()
		case <-timerC:
		case <-q.notify:
			if timer != nil {
				timer.Stop()
			}
		}
	}
}

// Len returns the number of runnable jobs (ready delayed jobs included).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.promote(time.Now())
	return len(q.pending)
}

// DelayedLen returns the number of jobs still waiting on their backoff delay.
func (q *Queue) DelayedLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.delayed.Len()
}

// Close marks the queue closed. Blocked Dequeue calls return
// domain.ErrQueueClosed once the runnable FIFO drains.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// promote moves every matured delayed job onto the runnable FIFO.
// Caller must hold q.mu.
func (q *Queue) promote(now time.Time) {
	for q.delayed.Len() > 0 && !q.delayed[0].ReadyAt.After(now) {
		job := heap.Pop(&q.delayed).(Job)
		q.pending = append(q.pending, job)
	}
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// jobHeap is a min-heap of delayed jobs ordered by ReadyAt.
type jobHeap []Job

func (h jobHeap) Len() int            { return len(h) }
func (h jobHeap) Less(i, j int) bool  { return h[i].ReadyAt.Before(h[j].ReadyAt) }
func (h jobHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x any)         { *h = append(*h, x.(Job)) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	*h = old[:n-1]
	return job
}
