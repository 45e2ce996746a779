// Package execution simulates the settlement step that follows venue
// selection. Settlement is atomic from the lifecycle's perspective: it
// either fully succeeds with a receipt or fully fails.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/swaprouter/internal/domain"
)

// defaultFailureRate is the probability of a simulated transient network
// failure per settlement attempt.
const defaultFailureRate = 0.02

// PriceSampler draws one price from a venue's quoting distribution. The
// executed price is resampled from the same family as the quote, which
// models slippage between quote and fill.
type PriceSampler interface {
	SamplePrice() float64
}

// Attester optionally signs settlement receipts. A nil Attester disables
// attestation.
type Attester interface {
	Attest(orderID, transactionID string, executedPrice float64) (string, error)
}

// Receipt is the result of a successful settlement.
type Receipt struct {
	TransactionID string
	ExecutedPrice float64
	Venue         string
	Attestation   string
}

// Config holds the simulator's tunables.
type Config struct {
	FailureRate float64 // probability of transient failure, defaults to 2%
	MinLatency  time.Duration
	MaxLatency  time.Duration
}

// Simulator performs simulated settlements against a chosen venue.
type Simulator struct {
	cfg      Config
	samplers map[string]PriceSampler
	attester Attester
	logger   *slog.Logger
}

// NewSimulator creates a Simulator. samplers maps venue name to that
// venue's price distribution; attester may be nil.
func NewSimulator(cfg Config, samplers map[string]PriceSampler, attester Attester, logger *slog.Logger) *Simulator {
	if cfg.FailureRate == 0 {
		cfg.FailureRate = defaultFailureRate
	}
	if cfg.MinLatency == 0 && cfg.MaxLatency == 0 {
		// Settlement is materially slower than quoting.
		cfg.MinLatency = 300 * time.Millisecond
		cfg.MaxLatency = 800 * time.Millisecond
	}
	return &Simulator{
		cfg:      cfg,
		samplers: samplers,
		attester: attester,
		logger:   logger.With(slog.String("component", "execution")),
	}
}

// Execute settles the order against the chosen venue. It simulates
// settlement latency, fails transiently with the configured probability
// (wrapping domain.ErrExecutionFailed so the dispatcher's retry policy
// catches it), and on success returns a receipt with a unique transaction
// id and a resampled executed price.
func (s *Simulator) Execute(ctx context.Context, order domain.Order, chosen domain.Quote) (Receipt, error) {
	if err := sleep(ctx, s.cfg.MinLatency, s.cfg.MaxLatency); err != nil {
		return Receipt{}, fmt.Errorf("execution: settle %s: %w", order.ID, err)
	}

	if rand.Float64() < s.cfg.FailureRate {
		return Receipt{}, fmt.Errorf("%w: venue %s rejected transaction (transient network failure)",
			domain.ErrExecutionFailed, chosen.Venue)
	}

	executedPrice := chosen.Price
	if sampler, ok := s.samplers[chosen.Venue]; ok {
		executedPrice = sampler.SamplePrice()
	}

	rcpt := Receipt{
		TransactionID: uuid.New().String(),
		ExecutedPrice: executedPrice,
		Venue:         chosen.Venue,
	}

	if s.attester != nil {
		sig, err := s.attester.Attest(order.ID, rcpt.TransactionID, rcpt.ExecutedPrice)
		if err != nil {
			// Attestation is audit sugar, not settlement: log and continue.
			s.logger.Warn("receipt attestation failed",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		} else {
			rcpt.Attestation = sig
		}
	}

	s.logger.DebugContext(ctx, "settlement confirmed",
		slog.String("order_id", order.ID),
		slog.String("tx_id", rcpt.TransactionID),
		slog.Float64("executed_price", rcpt.ExecutedPrice),
	)

	return rcpt, nil
}

// sleep pauses for a uniform duration in [min, max], honouring ctx.
func sleep(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
