package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination and filtering for list queries. Since is an
// inclusive lower bound and Until an exclusive upper bound on CreatedAt;
// either may be nil to leave that side unbounded.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// InRange reports whether t satisfies the Since/Until bounds.
func (o ListOpts) InRange(t time.Time) bool {
	if o.Since != nil && t.Before(*o.Since) {
		return false
	}
	if o.Until != nil && !t.Before(*o.Until) {
		return false
	}
	return true
}

// OrderStore persists swap orders. Writes for different ids are safe
// concurrently; writes for the same id are last-write-wins.
type OrderStore interface {
	Create(ctx context.Context, order Order) error
	Update(ctx context.Context, order Order) error
	GetByID(ctx context.Context, id string) (Order, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]Order, error)
	ListTerminalBefore(ctx context.Context, before time.Time) ([]Order, error)
}

// DecisionLogStore persists the append-only routing/execution audit trail.
type DecisionLogStore interface {
	Append(ctx context.Context, entry DecisionLogEntry) error
	List(ctx context.Context, orderID string, opts ListOpts) ([]DecisionLogEntry, error)
	ListBefore(ctx context.Context, before time.Time) ([]DecisionLogEntry, error)
}

// RateLimiter provides rate limiting for inbound API traffic.
type RateLimiter interface {
	// Allow reports whether a request for key is permitted under a sliding
	// window of limit requests per window. Allowed requests are counted.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
