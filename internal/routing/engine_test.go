package routing

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/swaprouter/internal/domain"
	"github.com/alanyoungcy/swaprouter/internal/venue"
)

// stubVenue returns a fixed quote (or error) for every request.
type stubVenue struct {
	name  string
	price float64
	fee   float64
	err   error
}

func (s *stubVenue) Name() string { return s.name }

func (s *stubVenue) Quote(ctx context.Context, tokenIn, tokenOut string, amount float64) (domain.Quote, error) {
	if s.err != nil {
		return domain.Quote{}, s.err
	}
	return domain.Quote{Venue: s.name, Price: s.price, FeeRate: s.fee}, nil
}

func TestRoutePicksHighestPrice(t *testing.T) {
	e := NewEngine([]venue.Venue{
		&stubVenue{name: domain.VenueRaydium, price: 100.5},
		&stubVenue{name: domain.VenueMeteora, price: 101.2},
	}, slog.Default())

	dec, err := e.Route(context.Background(), domain.Order{ID: "o1", TokenIn: "SOL", TokenOut: "USDC", Amount: 10})
	require.NoError(t, err)

	assert.Equal(t, domain.VenueMeteora, dec.Chosen.Venue)
	assert.Equal(t, 101.2, dec.Chosen.Price)
	assert.Len(t, dec.Quotes, 2)
	assert.NotEmpty(t, dec.Justification)
}

func TestRouteTieKeepsFirstListedVenue(t *testing.T) {
	e := NewEngine([]venue.Venue{
		&stubVenue{name: domain.VenueRaydium, price: 100.0},
		&stubVenue{name: domain.VenueMeteora, price: 100.0},
	}, slog.Default())

	dec, err := e.Route(context.Background(), domain.Order{ID: "o1"})
	require.NoError(t, err)

	assert.Equal(t, domain.VenueRaydium, dec.Chosen.Venue)
}

func TestRouteQuotesRetainVenueOrder(t *testing.T) {
	e := NewEngine([]venue.Venue{
		&stubVenue{name: domain.VenueRaydium, price: 99.0},
		&stubVenue{name: domain.VenueMeteora, price: 98.0},
	}, slog.Default())

	dec, err := e.Route(context.Background(), domain.Order{ID: "o1"})
	require.NoError(t, err)

	require.Len(t, dec.Quotes, 2)
	assert.Equal(t, domain.VenueRaydium, dec.Quotes[0].Venue)
	assert.Equal(t, domain.VenueMeteora, dec.Quotes[1].Venue)
}

func TestRouteVenueErrorWrapsRoutingFailed(t *testing.T) {
	e := NewEngine([]venue.Venue{
		&stubVenue{name: domain.VenueRaydium, price: 100.0},
		&stubVenue{name: domain.VenueMeteora, err: errors.New("pool unavailable")},
	}, slog.Default())

	_, err := e.Route(context.Background(), domain.Order{ID: "o1"})
	assert.ErrorIs(t, err, domain.ErrRoutingFailed)
}

func TestSimulatedVenuePricesStayInBounds(t *testing.T) {
	v := venue.DefaultRaydium(150.0)

	for i := 0; i < 1000; i++ {
		p := v.SamplePrice()
		assert.GreaterOrEqual(t, p, 150.0*0.98)
		assert.Less(t, p, 150.0*1.03)
	}
}
