// Package routing compares quotes across the configured venues and selects
// the one to execute against.
package routing

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/swaprouter/internal/domain"
	"github.com/alanyoungcy/swaprouter/internal/venue"
)

// Decision captures the outcome of one routing comparison: every raw quote,
// the winner, and a human-readable justification for the decision log.
type Decision struct {
	Quotes        []domain.Quote
	Chosen        domain.Quote
	Justification string
}

// Engine fetches quotes from a fixed, ordered list of venues and picks the
// best price. The listing order is the tie-break: on exactly equal prices
// the earlier venue wins.
type Engine struct {
	venues []venue.Venue
	logger *slog.Logger
}

// NewEngine creates a routing engine over the given venues. At least two
// venues are expected; order matters for tie-breaking.
func NewEngine(venues []venue.Venue, logger *slog.Logger) *Engine {
	return &Engine{
		venues: venues,
		logger: logger.With(slog.String("component", "routing")),
	}
}

// Route issues one quote request per venue concurrently, waits for all of
// them, and returns the best-priced quote. There is no per-quote timeout: a
// stalled venue stalls the order, a documented limitation of the simulator.
func (e *Engine) Route(ctx context.Context, order domain.Order) (Decision, error) {
	quotes := make([]domain.Quote, len(e.venues))

	g, gctx := errgroup.WithContext(ctx)
	for i, v := range e.venues {
		g.Go(func() error {
			q, err := v.Quote(gctx, order.TokenIn, order.TokenOut, order.Amount)
			if err != nil {
				return fmt.Errorf("routing: quote %s: %w", v.Name(), err)
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", domain.ErrRoutingFailed, err)
	}

	best := quotes[0]
	for _, q := range quotes[1:] {
		// Strict comparison: ties keep the earlier-listed venue.
		if q.Price > best.Price {
			best = q
		}
	}

	dec := Decision{
		Quotes: quotes,
		Chosen: best,
		Justification: fmt.Sprintf(
			"selected %s at price %.6f (best of %d quotes)",
			best.Venue, best.Price, len(quotes),
		),
	}

	e.logger.DebugContext(ctx, "venue selected",
		slog.String("order_id", order.ID),
		slog.String("venue", best.Venue),
		slog.Float64("price", best.Price),
	)

	return dec, nil
}
