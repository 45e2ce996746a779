package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/swaprouter/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create inserts a new order.
func (s *OrderStore) Create(ctx context.Context, o domain.Order) error {
	const query = `
		INSERT INTO orders (
			id, token_in, token_out, amount, order_type, status,
			chosen_venue, transaction_id, executed_price, error_message,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			NULLIF($7, ''), NULLIF($8, ''), $9, NULLIF($10, ''),
			$11, $12
		)`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.TokenIn, o.TokenOut, o.Amount,
		string(o.Type), string(o.Status),
		o.ChosenVenue, o.TransactionID, o.ExecutedPrice, o.ErrorMessage,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create order %s: %w", o.ID, err)
	}
	return nil
}

// Update upserts the full order record by id. Last write wins, which
// matches the single-owner worker model: only one worker mutates an order
// at any instant.
func (s *OrderStore) Update(ctx context.Context, o domain.Order) error {
	const query = `
		INSERT INTO orders (
			id, token_in, token_out, amount, order_type, status,
			chosen_venue, transaction_id, executed_price, error_message,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			NULLIF($7, ''), NULLIF($8, ''), $9, NULLIF($10, ''),
			$11, $12
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			chosen_venue = EXCLUDED.chosen_venue,
			transaction_id = EXCLUDED.transaction_id,
			executed_price = EXCLUDED.executed_price,
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.TokenIn, o.TokenOut, o.Amount,
		string(o.Type), string(o.Status),
		o.ChosenVenue, o.TransactionID, o.ExecutedPrice, o.ErrorMessage,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update order %s: %w", o.ID, err)
	}
	return nil
}

const orderSelectCols = `id, token_in, token_out, amount, order_type, status,
	COALESCE(chosen_venue, ''), COALESCE(transaction_id, ''),
	COALESCE(executed_price, 0), COALESCE(error_message, ''),
	created_at, updated_at`

func scanOrderFromRow(scanner interface{ Scan(dest ...any) error }) (domain.Order, error) {
	var o domain.Order
	var orderType, status string

	err := scanner.Scan(
		&o.ID, &o.TokenIn, &o.TokenOut, &o.Amount,
		&orderType, &status,
		&o.ChosenVenue, &o.TransactionID,
		&o.ExecutedPrice, &o.ErrorMessage,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	o.Type = domain.OrderType(orderType)
	o.Status = domain.OrderStatus(status)
	return o, nil
}

func scanOrderRows(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrderFromRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetByID retrieves a single order by ID.
func (s *OrderStore) GetByID(ctx context.Context, id string) (domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderSelectCols+` FROM orders WHERE id = $1`, id)

	o, err := scanOrderFromRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("postgres: get order %s: %w", id, err)
	}
	return o, nil
}

// ListRecent returns orders newest-first with pagination, bounded by any
// Since/Until filter on created_at.
func (s *OrderStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Order, error) {
	query := `SELECT ` + orderSelectCols + ` FROM orders`
	args := []any{}
	argIdx := 1

	var conds []string
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
	query += " ORDER BY created_at DESC"

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
		return nil, fmt.Errorf("postgres: list recent orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent orders: %w", err)
	}
	return orders, nil
}

// ListTerminalBefore returns confirmed and failed orders created strictly
// before the cutoff, for archival.
func (s *OrderStore) ListTerminalBefore(ctx context.Context, before time.Time) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderSelectCols+` FROM orders
		 WHERE status IN ('confirmed', 'failed') AND created_at < $1
		 ORDER BY created_at`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list terminal orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan terminal orders: %w", err)
	}
	return orders, nil
}

// Compile-time interface check.
var _ domain.OrderStore = (*OrderStore)(nil)
