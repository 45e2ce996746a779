// Package bus provides the in-process, per-order publish/subscribe channel
// for lifecycle status events. The bus is confined to a single process; a
// distributed deployment would layer a shared broker underneath this
// interface.
package bus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/swaprouter/internal/domain"
)

// subBufferSize comfortably exceeds the number of lifecycle events a single
// order can ever produce, so delivery only drops for a reader that has
// stopped draining entirely.
const subBufferSize = 16

// Subscription is one delivery handle for a single order id. The Events
// channel closes after a terminal status event is delivered, or when Cancel
// is called.
type Subscription struct {
	bus     *Bus
	orderID string
	ch      chan domain.StatusEvent
	close   sync.Once
}

// Events returns the stream of status events for the subscribed order.
func (s *Subscription) Events() <-chan domain.StatusEvent {
	return s.ch
}

// Cancel detaches the subscription and closes its channel. It is idempotent
// and safe to call concurrently with Publish.
func (s *Subscription) Cancel() {
	s.bus.remove(s)
	s.close.Do(func() { close(s.ch) })
}

// Bus fans lifecycle events out to every subscriber of the event's order
// id. Delivery is synchronous with Publish; there is no buffering beyond
// each subscriber's own channel and no replay of past events.
type Bus struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	logger *slog.Logger
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[string]map[*Subscription]struct{}),
		logger: logger.With(slog.String("component", "bus")),
	}
}

// Subscribe registers a new delivery handle for orderID. The handle's first
// event is always a synthetic pending snapshot, emitted before any live
// event can arrive. Events published before Subscribe are never replayed.
func (b *Bus) Subscribe(orderID string) *Subscription {
	sub := &Subscription{
		bus:     b,
		orderID: orderID,
		ch:      make(chan domain.StatusEvent, subBufferSize),
	}

	b.mu.Lock()
	set, ok := b.subs[orderID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[orderID] = set
	}
	set[sub] = struct{}{}
	// Snapshot goes in under the lock so no live event can be ordered
	// ahead of it.
	sub.ch <- domain.StatusEvent{
		OrderID: orderID,
		Status:  domain.OrderStatusPending,
		At:      time.Now().UTC(),
	}
	b.mu.Unlock()

	return sub
}

// Publish delivers ev to every subscriber currently registered for its
// order id. After a terminal event is delivered, each subscriber's channel
// is closed and the subscriber set for that id is released.
func (b *Bus) Publish(ev domain.StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[ev.OrderID]
	for sub := range set {
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				slog.String("order_id", ev.OrderID),
				slog.String("status", string(ev.Status)),
			)
		}
	}

	if ev.Status.IsTerminal() && set != nil {
		for sub := range set {
			sub.close.Do(func() { close(sub.ch) })
		}
		delete(b.subs, ev.OrderID)
	}
}

// SubscriberCount returns the number of live subscriptions for orderID.
func (b *Bus) SubscriberCount(orderID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[orderID])
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.orderID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.orderID)
		}
	}
}
