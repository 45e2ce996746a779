package domain

import "time"

// Decision-log event labels written by the engine.
const (
	DecisionEventQuotes   = "quotes_compared"
	DecisionEventExecuted = "execution_settled"
	DecisionEventFailed   = "execution_failed"
	DecisionEventArchived = "records_archived"
)

// DecisionLogEntry is one append-only audit record explaining a routing or
// execution decision. Detail is stored as JSONB and carries event-specific
// structure (both raw quotes, chosen venue, justification, receipts).
type DecisionLogEntry struct {
	ID        int64          `json:"id"`
	OrderID   string         `json:"order_id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}
