// Package venue provides the simulated liquidity venues the routing engine
// quotes against. Each venue samples its price as basePrice × uniform(low,
// high) with venue-specific asymmetric bounds, producing a natural spread
// between venues, and charges a fixed fee rate.
package venue

import (
	"context"
	"math/rand"
	"time"

	"github.com/alanyoungcy/swaprouter/internal/domain"
)

// Venue quotes a price and fee for a prospective swap.
type Venue interface {
	Name() string
	Quote(ctx context.Context, tokenIn, tokenOut string, amount float64) (domain.Quote, error)
}

// Config holds the sampling parameters for a simulated venue.
type Config struct {
	Name       string
	BasePrice  float64
	Low        float64 // lower multiplier bound, exclusive of spread overlap
	High       float64 // upper multiplier bound
	FeeRate    float64 // fixed, in [0, 1)
	MinLatency time.Duration
	MaxLatency time.Duration
}

// Simulated is a Venue that samples quotes instead of calling a real DEX.
type Simulated struct {
	cfg Config
}

// New creates a simulated venue from cfg.
func New(cfg Config) *Simulated {
	return &Simulated{cfg: cfg}
}

// DefaultRaydium returns the raydium venue with its standard bounds.
func DefaultRaydium(basePrice float64) *Simulated {
	return New(Config{
		Name:       domain.VenueRaydium,
		BasePrice:  basePrice,
		Low:        0.98,
		High:       1.03,
		FeeRate:    0.0025,
		MinLatency: 50 * time.Millisecond,
		MaxLatency: 150 * time.Millisecond,
	})
}

// DefaultMeteora returns the meteora venue with its standard bounds.
func DefaultMeteora(basePrice float64) *Simulated {
	return New(Config{
		Name:       domain.VenueMeteora,
		BasePrice:  basePrice,
		Low:        0.97,
		High:       1.04,
		FeeRate:    0.002,
		MinLatency: 50 * time.Millisecond,
		MaxLatency: 150 * time.Millisecond,
	})
}

// Name returns the venue identifier.
func (v *Simulated) Name() string {
	return v.cfg.Name
}

// FeeRate returns the venue's fixed fee rate.
func (v *Simulated) FeeRate() float64 {
	return v.cfg.FeeRate
}

// SamplePrice draws one price from the venue's distribution.
func (v *Simulated) SamplePrice() float64 {
	return v.cfg.BasePrice * uniform(v.cfg.Low, v.cfg.High)
}

// Quote simulates quote latency then returns a sampled price with the
// venue's fixed fee. The amount does not move the price: depth-aware
// quoting is out of scope.
func (v *Simulated) Quote(ctx context.Context, tokenIn, tokenOut string, amount float64) (domain.Quote, error) {
	if err := sleep(ctx, v.cfg.MinLatency, v.cfg.MaxLatency); err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		Venue:   v.cfg.Name,
		Price:   v.SamplePrice(),
		FeeRate: v.cfg.FeeRate,
	}, nil
}

// uniform returns a sample from [low, high).
func uniform(low, high float64) float64 {
	return low + rand.Float64()*(high-low)
}

// sleep pauses for a uniform duration in [min, max], honouring ctx.
func sleep(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	if d <= 0 {
		return ctx.Err()
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
