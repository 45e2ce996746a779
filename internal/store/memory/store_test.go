package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/swaprouter/internal/domain"
)

func TestOrderStoreRoundTrip(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()

	order := domain.Order{ID: "o1", TokenIn: "SOL", TokenOut: "USDC", Status: domain.OrderStatusPending}
	require.NoError(t, s.Create(ctx, order))

	got, err := s.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, order, got)

	order.Status = domain.OrderStatusConfirmed
	order.TransactionID = "tx-1"
	require.NoError(t, s.Update(ctx, order))

	got, err = s.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, got.Status)
	assert.Equal(t, "tx-1", got.TransactionID)
}

func TestOrderStoreGetMissing(t *testing.T) {
	s := NewOrderStore()
	_, err := s.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderStoreListRecentOrdersNewestFirst(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Create(ctx, domain.Order{
			ID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	got, err := s.ListRecent(ctx, domain.ListOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	got, err = s.ListRecent(ctx, domain.ListOpts{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestOrderStoreListRecentTimeBounds(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, domain.Order{ID: "old", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, s.Create(ctx, domain.Order{ID: "fresh", CreatedAt: now.Add(-10 * time.Minute)}))

	since := now.Add(-time.Hour)
	got, err := s.ListRecent(ctx, domain.ListOpts{Since: &since})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID)

	until := now.Add(-time.Hour)
	got, err = s.ListRecent(ctx, domain.ListOpts{Until: &until})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].ID)

	// Since is inclusive, Until exclusive.
	edge := now.Add(-10 * time.Minute)
	got, err = s.ListRecent(ctx, domain.ListOpts{Since: &edge})
	require.NoError(t, err)
	require.Len(t, got, 1)
	got, err = s.ListRecent(ctx, domain.ListOpts{Until: &edge})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].ID)
}

func TestDecisionStoreListTimeBounds(t *testing.T) {
	s := NewDecisionStore()
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, domain.DecisionLogEntry{
		OrderID: "o1", Event: domain.DecisionEventQuotes, CreatedAt: now.Add(-48 * time.Hour),
	}))
	require.NoError(t, s.Append(ctx, domain.DecisionLogEntry{
		OrderID: "o1", Event: domain.DecisionEventExecuted, CreatedAt: now.Add(-5 * time.Minute),
	}))

	since := now.Add(-time.Hour)
	got, err := s.List(ctx, "o1", domain.ListOpts{Since: &since})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.DecisionEventExecuted, got[0].Event)

	until := now.Add(-time.Hour)
	got, err = s.List(ctx, "o1", domain.ListOpts{Until: &until})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.DecisionEventQuotes, got[0].Event)
}

func TestDecisionStoreAssignsSequentialIDs(t *testing.T) {
	s := NewDecisionStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, domain.DecisionLogEntry{OrderID: "o1", Event: domain.DecisionEventQuotes}))
	require.NoError(t, s.Append(ctx, domain.DecisionLogEntry{OrderID: "o2", Event: domain.DecisionEventQuotes}))
	require.NoError(t, s.Append(ctx, domain.DecisionLogEntry{OrderID: "o1", Event: domain.DecisionEventExecuted}))

	all, err := s.List(ctx, "", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, int64(3), all[2].ID)

	filtered, err := s.List(ctx, "o1", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, domain.DecisionEventQuotes, filtered[0].Event)
	assert.Equal(t, domain.DecisionEventExecuted, filtered[1].Event)
}
