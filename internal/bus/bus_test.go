package bus

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/swaprouter/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func recvEvent(t *testing.T, sub *Subscription) domain.StatusEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "channel closed before expected event")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.StatusEvent{}
	}
}

func TestSubscribeDeliversPendingSnapshotFirst(t *testing.T) {
	b := New(testLogger())
	sub := b.Subscribe("order-1")
	defer sub.Cancel()

	ev := recvEvent(t, sub)
	assert.Equal(t, "order-1", ev.OrderID)
	assert.Equal(t, domain.OrderStatusPending, ev.Status)
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := New(testLogger())
	sub1 := b.Subscribe("order-1")
	sub2 := b.Subscribe("order-1")
	other := b.Subscribe("order-2")
	defer sub1.Cancel()
	defer sub2.Cancel()
	defer other.Cancel()

	// Drain the snapshots.
	recvEvent(t, sub1)
	recvEvent(t, sub2)
	recvEvent(t, other)

	b.Publish(domain.StatusEvent{OrderID: "order-1", Status: domain.OrderStatusRouting})

	for _, sub := range []*Subscription{sub1, sub2} {
		ev := recvEvent(t, sub)
		assert.Equal(t, domain.OrderStatusRouting, ev.Status)
	}

	// The other order's subscriber saw nothing beyond its snapshot.
	select {
	case ev := <-other.Events():
		t.Fatalf("unexpected event for order-2: %+v", ev)
	default:
	}
}

func TestTerminalEventClosesSubscribers(t *testing.T) {
	b := New(testLogger())
	sub := b.Subscribe("order-1")

	recvEvent(t, sub) // snapshot

	b.Publish(domain.StatusEvent{OrderID: "order-1", Status: domain.OrderStatusConfirmed})

	ev := recvEvent(t, sub)
	assert.Equal(t, domain.OrderStatusConfirmed, ev.Status)

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok, "channel should be closed after terminal event")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after terminal event")
	}

	assert.Equal(t, 0, b.SubscriberCount("order-1"))
}

func TestEventsPublishedBeforeSubscribeAreNotReplayed(t *testing.T) {
	b := New(testLogger())

	b.Publish(domain.StatusEvent{OrderID: "order-1", Status: domain.OrderStatusRouting})
	b.Publish(domain.StatusEvent{OrderID: "order-1", Status: domain.OrderStatusBuilding})

	sub := b.Subscribe("order-1")
	defer sub.Cancel()

	// Only the synthetic snapshot is delivered.
	ev := recvEvent(t, sub)
	assert.Equal(t, domain.OrderStatusPending, ev.Status)

	select {
	case ev := <-sub.Events():
		t.Fatalf("replayed event: %+v", ev)
	default:
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	b := New(testLogger())
	sub := b.Subscribe("order-1")

	sub.Cancel()
	sub.Cancel() // must not panic

	assert.Equal(t, 0, b.SubscriberCount("order-1"))

	// Publishing after cancel is a no-op for this subscriber.
	b.Publish(domain.StatusEvent{OrderID: "order-1", Status: domain.OrderStatusConfirmed})
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New(testLogger())
	sub := b.Subscribe("order-1")
	defer sub.Cancel()

	// Fill the buffer without draining (snapshot already occupies one slot).
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subBufferSize+8; i++ {
			b.Publish(domain.StatusEvent{OrderID: "order-1", Status: domain.OrderStatusRouting})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
