package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/swaprouter/internal/domain"
)

// DecisionStore implements domain.DecisionLogStore in memory. Entries are
// held in insertion order.
type DecisionStore struct {
	mu      sync.RWMutex
	entries []domain.DecisionLogEntry
	nextID  int64
}

// NewDecisionStore creates an empty DecisionStore.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{nextID: 1}
}

// Append adds an entry to the log.
func (s *DecisionStore) Append(ctx context.Context, entry domain.DecisionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextID
	s.nextID++
	s.entries = append(s.entries, entry)
	return nil
}

// List returns entries in insertion order, optionally filtered by order id
// and bounded by any Since/Until filter.
func (s *DecisionStore) List(ctx context.Context, orderID string, opts domain.ListOpts) ([]domain.DecisionLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DecisionLogEntry
	for _, e := range s.entries {
		if orderID != "" && e.OrderID != orderID {
			continue
		}
		if !opts.InRange(e.CreatedAt) {
			continue
		}
		out = append(out, e)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// ListBefore returns entries created strictly before the cutoff.
func (s *DecisionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.DecisionLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DecisionLogEntry
	for _, e := range s.entries {
		if e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.DecisionLogStore = (*DecisionStore)(nil)
