package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/swaprouter/internal/domain"
)

func TestQueueFIFO(t *testing.T) {
	q := New()
	q.Enqueue(Job{ID: "a", Attempt: 1})
	q.Enqueue(Job{ID: "b", Attempt: 1})
	q.Enqueue(Job{ID: "c", Attempt: 1})

	ctx := context.Background()
	for _, want := range []string{"a", "b", "c"} {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, job.ID)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueueDequeueBlocksUntilEnqueue(t *testing.T) {
	q := New()

	done := make(chan Job, 1)
	go func() {
		job, err := q.Dequeue(context.Background())
		if err == nil {
			done <- job
		}
	}()

	// Give the consumer time to block.
	time.Sleep(20 * time.Millisecond)
	q.Enqueue(Job{ID: "late"})

	select {
	case job := <-done:
		assert.Equal(t, "late", job.ID)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake on enqueue")
	}
}

func TestQueueScheduleDelaysDelivery(t *testing.T) {
	q := New()
	q.Schedule(Job{ID: "retry", Attempt: 2}, 60*time.Millisecond)

	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 1, q.DelayedLen())

	start := time.Now()
	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "retry", job.ID)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 0, q.DelayedLen())
}

func TestQueueScheduleOrdering(t *testing.T) {
	q := New()
	q.Schedule(Job{ID: "slow"}, 80*time.Millisecond)
	q.Schedule(Job{ID: "fast"}, 10*time.Millisecond)

	ctx := context.Background()
	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	second, err := q.Dequeue(ctx)
	require.NoError(t, err)

	assert.Equal(t, "fast", first.ID)
	assert.Equal(t, "slow", second.ID)
}

func TestQueueDequeueHonoursContext(t *testing.T) {
	q := New()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueCloseDrainsThenReports(t *testing.T) {
	q := New()
	q.Enqueue(Job{ID: "last"})
	q.Close()

	ctx := context.Background()
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "last", job.ID)

	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, domain.ErrQueueClosed)

	// Enqueue after close is a no-op.
	q.Enqueue(Job{ID: "dropped"})
	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, domain.ErrQueueClosed)
}

func TestQueueCloseWakesBlockedDequeue(t *testing.T) {
	q := New()

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, domain.ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("close did not wake blocked dequeue")
	}
}
