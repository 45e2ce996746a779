// Package engine contains the asynchronous order-processing core: the
// lifecycle runner that walks a single order through its status machine,
// and the dispatcher that admits jobs under the concurrency and rate gates
// and applies the retry policy.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/swaprouter/internal/bus"
	"github.com/alanyoungcy/swaprouter/internal/domain"
	"github.com/alanyoungcy/swaprouter/internal/execution"
	"github.com/alanyoungcy/swaprouter/internal/queue"
	"github.com/alanyoungcy/swaprouter/internal/routing"
)

// Router selects the venue for an order.
type Router interface {
	Route(ctx context.Context, order domain.Order) (routing.Decision, error)
}

// Executor settles an order against the chosen venue.
type Executor interface {
	Execute(ctx context.Context, order domain.Order, chosen domain.Quote) (execution.Receipt, error)
}

// Runner walks one order attempt through the lifecycle
// pending → routing → building → submitted → confirmed, publishing an
// event on the bus and then persisting after every transition. Persistence
// failures are logged and never block or roll back a transition.
type Runner struct {
	router    Router
	exec      Executor
	bus       *bus.Bus
	orders    domain.OrderStore
	decisions domain.DecisionLogStore
	logger    *slog.Logger
}

// NewRunner creates a lifecycle Runner.
func NewRunner(
	router Router,
	exec Executor,
	eventBus *bus.Bus,
	orders domain.OrderStore,
	decisions domain.DecisionLogStore,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		router:    router,
		exec:      exec,
		bus:       eventBus,
		orders:    orders,
		decisions: decisions,
		logger:    logger.With(slog.String("component", "lifecycle")),
	}
}

// Process runs one full attempt for the job's order. A routing or execution
// error is returned without any failed transition being emitted; deciding
// between a retry and the terminal failure belongs to the dispatcher.
func (r *Runner) Process(ctx context.Context, job queue.Job) error {
	order := job.Order
	order.Status = domain.OrderStatusPending // attempts always restart from pending

	r.advance(ctx, &order, domain.OrderStatusRouting, nil)

	dec, err := r.router.Route(ctx, order)
	if err != nil {
		return fmt.Errorf("engine: order %s attempt %d: %w", order.ID, job.Attempt, err)
	}

	r.appendDecision(ctx, domain.DecisionLogEntry{
		OrderID: order.ID,
		Event:   domain.DecisionEventQuotes,
		Detail: map[string]any{
			"quotes":        dec.Quotes,
			"chosen_venue":  dec.Chosen.Venue,
			"chosen_price":  dec.Chosen.Price,
			"justification": dec.Justification,
			"attempt":       job.Attempt,
		},
	})

	order.ChosenVenue = dec.Chosen.Venue
	r.advance(ctx, &order, domain.OrderStatusBuilding, map[string]any{
		"venue": dec.Chosen.Venue,
		"price": dec.Chosen.Price,
	})

	r.advance(ctx, &order, domain.OrderStatusSubmitted, map[string]any{
		"venue": dec.Chosen.Venue,
	})

	rcpt, err := r.exec.Execute(ctx, order, dec.Chosen)
	if err != nil {
		return fmt.Errorf("engine: order %s attempt %d: %w", order.ID, job.Attempt, err)
	}

	order.TransactionID = rcpt.TransactionID
	order.ExecutedPrice = rcpt.ExecutedPrice
	r.advance(ctx, &order, domain.OrderStatusConfirmed, map[string]any{
		"transaction_id": rcpt.TransactionID,
		"executed_price": rcpt.ExecutedPrice,
		"venue":          rcpt.Venue,
	})

	detail := map[string]any{
		"transaction_id": rcpt.TransactionID,
		"executed_price": rcpt.ExecutedPrice,
		"venue":          rcpt.Venue,
		"attempt":        job.Attempt,
	}
	if rcpt.Attestation != "" {
		detail["attestation"] = rcpt.Attestation
	}
	r.appendDecision(ctx, domain.DecisionLogEntry{
		OrderID: order.ID,
		Event:   domain.DecisionEventExecuted,
		Detail:  detail,
	})

	return nil
}

// Fail performs the single terminal failed transition for an order whose
// retry budget is exhausted (or whose error is not retryable).
func (r *Runner) Fail(ctx context.Context, job queue.Job, cause error) {
	order := job.Order
	order.ErrorMessage = cause.Error()

	r.advance(ctx, &order, domain.OrderStatusFailed, map[string]any{
		"error": cause.Error(),
	})

	r.appendDecision(ctx, domain.DecisionLogEntry{
		OrderID: order.ID,
		Event:   domain.DecisionEventFailed,
		Detail: map[string]any{
			"error":    cause.Error(),
			"attempts": job.Attempt,
		},
	})
}

// advance performs one transition: publish the event on the bus, then
// persist the updated order. The event always goes out first so subscribers
// never lag the store.
func (r *Runner) advance(ctx context.Context, order *domain.Order, status domain.OrderStatus, metadata map[string]any) {
	if !order.Status.CanTransition(status) {
		// The lifecycle is sequential per order, so this is a programming
		// error rather than a runtime condition.
		r.logger.Error("illegal status transition",
			slog.String("order_id", order.ID),
			slog.String("from", string(order.Status)),
			slog.String("to", string(status)),
		)
		return
	}

	order.Status = status
	order.UpdatedAt = time.Now().UTC()

	r.bus.Publish(domain.StatusEvent{
		OrderID:  order.ID,
		Status:   status,
		Metadata: metadata,
		At:       order.UpdatedAt,
	})

	if err := r.orders.Update(ctx, *order); err != nil {
		r.logger.Warn("order persist failed",
			slog.String("order_id", order.ID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
	}
}

// appendDecision writes a decision-log entry, logging failures without
// interrupting the lifecycle.
func (r *Runner) appendDecision(ctx context.Context, entry domain.DecisionLogEntry) {
	entry.CreatedAt = time.Now().UTC()
	if err := r.decisions.Append(ctx, entry); err != nil {
		r.logger.Warn("decision log append failed",
			slog.String("order_id", entry.OrderID),
			slog.String("event", entry.Event),
			slog.String("error", err.Error()),
		)
	}
}
