package domain

import "time"

// OrderType indicates how the order should be executed. Only market orders
// are routed today; limit and sniper are reserved enum values rejected at
// submission until their engines exist.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
	OrderTypeSniper OrderType = "sniper"
)

// OrderStatus tracks the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusRouting   OrderStatus = "routing"
	OrderStatusBuilding  OrderStatus = "building"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusFailed    OrderStatus = "failed"
)

// nextStatus maps each non-terminal status to its single legal successor on
// the happy path. Any non-terminal status may additionally jump to failed.
var nextStatus = map[OrderStatus]OrderStatus{
	OrderStatusPending:   OrderStatusRouting,
	OrderStatusRouting:   OrderStatusBuilding,
	OrderStatusBuilding:  OrderStatusSubmitted,
	OrderStatusSubmitted: OrderStatusConfirmed,
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusConfirmed || s == OrderStatusFailed
}

// CanTransition reports whether moving from s to target is a legal lifecycle
// step: the next status in sequence, or failed from any non-terminal status.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if target == OrderStatusFailed {
		return true
	}
	return nextStatus[s] == target
}

// Order represents a swap order moving through the routing engine.
type Order struct {
	ID            string      `json:"id"`
	TokenIn       string      `json:"token_in"`
	TokenOut      string      `json:"token_out"`
	Amount        float64     `json:"amount"`
	Type          OrderType   `json:"order_type"`
	Status        OrderStatus `json:"status"`
	ChosenVenue   string      `json:"chosen_venue,omitempty"`
	TransactionID string      `json:"transaction_id,omitempty"`
	ExecutedPrice float64     `json:"executed_price,omitempty"`
	ErrorMessage  string      `json:"error_message,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Pair returns the token pair in "IN/OUT" display form.
func (o Order) Pair() string {
	return o.TokenIn + "/" + o.TokenOut
}
