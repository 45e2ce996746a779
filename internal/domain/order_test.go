package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionHappyPath(t *testing.T) {
	sequence := []OrderStatus{
		OrderStatusPending,
		OrderStatusRouting,
		OrderStatusBuilding,
		OrderStatusSubmitted,
		OrderStatusConfirmed,
	}

	for i := 0; i < len(sequence)-1; i++ {
		assert.True(t, sequence[i].CanTransition(sequence[i+1]),
			"%s -> %s should be legal", sequence[i], sequence[i+1])
	}
}

func TestCanTransitionRejectsSkips(t *testing.T) {
	assert.False(t, OrderStatusPending.CanTransition(OrderStatusBuilding))
	assert.False(t, OrderStatusPending.CanTransition(OrderStatusConfirmed))
	assert.False(t, OrderStatusRouting.CanTransition(OrderStatusSubmitted))
	assert.False(t, OrderStatusBuilding.CanTransition(OrderStatusRouting)) // no going back
}

func TestCanTransitionFailedFromAnyNonTerminal(t *testing.T) {
	for _, s := range []OrderStatus{
		OrderStatusPending,
		OrderStatusRouting,
		OrderStatusBuilding,
		OrderStatusSubmitted,
	} {
		assert.True(t, s.CanTransition(OrderStatusFailed), "%s -> failed should be legal", s)
	}
}

func TestTerminalStatusesAreFinal(t *testing.T) {
	for _, terminal := range []OrderStatus{OrderStatusConfirmed, OrderStatusFailed} {
		assert.True(t, terminal.IsTerminal())
		for _, target := range []OrderStatus{
			OrderStatusPending,
			OrderStatusRouting,
			OrderStatusBuilding,
			OrderStatusSubmitted,
			OrderStatusConfirmed,
			OrderStatusFailed,
		} {
			assert.False(t, terminal.CanTransition(target),
				"%s -> %s should be illegal", terminal, target)
		}
	}
}

func TestPair(t *testing.T) {
	o := Order{TokenIn: "SOL", TokenOut: "USDC"}
	assert.Equal(t, "SOL/USDC", o.Pair())
}
