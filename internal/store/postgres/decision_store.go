package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/swaprouter/internal/domain"
)

// DecisionStore implements domain.DecisionLogStore using PostgreSQL. The
// detail payload is stored as JSONB.
type DecisionStore struct {
	pool *pgxpool.Pool
}

// NewDecisionStore creates a new DecisionStore backed by the given pool.
func NewDecisionStore(pool *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Append inserts a decision-log entry. Entries are append-only; insertion
// order is the query order.
func (s *DecisionStore) Append(ctx context.Context, entry domain.DecisionLogEntry) error {
	detailJSON, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("postgres: marshal decision detail: %w", err)
	}

	const query = `INSERT INTO decision_log (order_id, event, detail, created_at) VALUES ($1, $2, $3, $4)`
	_, err = s.pool.Exec(ctx, query, entry.OrderID, entry.Event, detailJSON, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: append decision %s for order %s: %w", entry.Event, entry.OrderID, err)
	}
	return nil
}

// List returns decision entries in insertion order, optionally filtered to
// a single order id and bounded by any Since/Until filter on created_at.
func (s *DecisionStore) List(ctx context.Context, orderID string, opts domain.ListOpts) ([]domain.DecisionLogEntry, error) {
	query := `SELECT id, order_id, event, detail, created_at FROM decision_log`
	args := []any{}
	argIdx := 1

	var conds []string
	if orderID != "" {
		conds = append(conds, fmt.Sprintf("order_id = $%d", argIdx))
		args = append(args, orderID)
		argIdx++
	}
	if opts.Since != nil {
		conds = append(conds, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		conds = append(conds, fmt.Sprintf("created_at < $%d", argIdx))
		args = append(args, *opts.Until)
		argIdx++
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY id"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list decisions: %w", err)
	}
	defer rows.Close()

	return scanDecisionRows(rows)
}

// ListBefore returns all entries created strictly before the cutoff, for
// archival.
func (s *DecisionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.DecisionLogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, order_id, event, detail, created_at FROM decision_log
		 WHERE created_at < $1 ORDER BY id`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list decisions before: %w", err)
	}
	defer rows.Close()

	return scanDecisionRows(rows)
}

func scanDecisionRows(rows pgx.Rows) ([]domain.DecisionLogEntry, error) {
	var entries []domain.DecisionLogEntry
	for rows.Next() {
		var e domain.DecisionLogEntry
		var detailJSON []byte

		if err := rows.Scan(&e.ID, &e.OrderID, &e.Event, &detailJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan decision entry: %w", err)
		}
		if len(detailJSON) > 0 {
			if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal decision detail: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Compile-time interface check.
var _ domain.DecisionLogStore = (*DecisionStore)(nil)
