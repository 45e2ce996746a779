package domain

import "time"

// StatusEvent is one lifecycle update published on the event bus for a
// single order. Metadata is stage-specific: {venue, price} at building,
// {venue} at submitted, {transaction_id, executed_price, venue} at
// confirmed, {error} at failed.
type StatusEvent struct {
	OrderID  string         `json:"order_id"`
	Status   OrderStatus    `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
	At       time.Time      `json:"at"`
}
