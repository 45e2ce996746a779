// Package service implements the submission gateway and the read-side
// queries over orders and the decision log.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/swaprouter/internal/crypto"
	"github.com/alanyoungcy/swaprouter/internal/domain"
	"github.com/alanyoungcy/swaprouter/internal/queue"
)

// SubmitRequest is the inbound swap submission payload.
type SubmitRequest struct {
	TokenIn   string  `json:"token_in"`
	TokenOut  string  `json:"token_out"`
	Amount    float64 `json:"amount"`
	OrderType string  `json:"order_type,omitempty"`
}

// SubmitResult is returned synchronously from Submit; processing continues
// asynchronously after it.
type SubmitResult struct {
	OrderID          string `json:"order_id"`
	SubscriptionHint string `json:"subscription_hint"`
}

// OrderService validates submissions, mints orders, enqueues jobs, and
// serves order/decision queries. Submission is fire-and-forget: Submit
// returns as soon as the job is on the queue.
type OrderService struct {
	queue        *queue.Queue
	orders       domain.OrderStore
	decisions    domain.DecisionLogStore
	attesterAddr string
	logger       *slog.Logger
}

// NewOrderService creates an OrderService. attesterAddr is the public address
// of the settlement attestation key; empty when attestation is disabled.
func NewOrderService(q *queue.Queue, orders domain.OrderStore, decisions domain.DecisionLogStore, attesterAddr string, logger *slog.Logger) *OrderService {
	return &OrderService{
		queue:        q,
		orders:       orders,
		decisions:    decisions,
		attesterAddr: attesterAddr,
		logger:       logger.With(slog.String("component", "order_service")),
	}
}

// Submit validates req, mints a pending order and enqueues its first
// attempt. Malformed input is rejected synchronously with
// domain.ErrInvalidOrder before any id is minted or job enqueued.
func (s *OrderService) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if err := validate(req); err != nil {
		return SubmitResult{}, err
	}

	orderType := domain.OrderType(req.OrderType)
	if req.OrderType == "" {
		orderType = domain.OrderTypeMarket
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:        uuid.New().String(),
		TokenIn:   req.TokenIn,
		TokenOut:  req.TokenOut,
		Amount:    req.Amount,
		Type:      orderType,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The queue, not the store, is the source of work: a store outage must
	// not reject the submission.
	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Warn("order create persist failed",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.queue.Enqueue(queue.Job{ID: order.ID, Order: order, Attempt: 1})

	s.logger.InfoContext(ctx, "order accepted",
		slog.String("order_id", order.ID),
		slog.String("pair", order.Pair()),
		slog.Float64("amount", order.Amount),
	)

	return SubmitResult{
		OrderID:          order.ID,
		SubscriptionHint: "/ws/orders/" + order.ID,
	}, nil
}

// GetOrder returns the full order record, or domain.ErrNotFound.
func (s *OrderService) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListRecent returns orders newest-first.
func (s *OrderService) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Order, error) {
	return s.orders.ListRecent(ctx, opts)
}

// ListDecisions returns decision-log entries in insertion order, optionally
// filtered to a single order id.
func (s *OrderService) ListDecisions(ctx context.Context, orderID string, opts domain.ListOpts) ([]domain.DecisionLogEntry, error) {
	return s.decisions.List(ctx, orderID, opts)
}

// AttestationReport is the result of re-checking a settlement receipt's
// signature against the attestation key's address.
type AttestationReport struct {
	OrderID       string  `json:"order_id"`
	TransactionID string  `json:"transaction_id"`
	ExecutedPrice float64 `json:"executed_price"`
	Attestation   string  `json:"attestation"`
	Address       string  `json:"address"`
	Valid         bool    `json:"valid"`
}

// VerifyAttestation recovers the signer of the attestation recorded in the
// order's executed decision entry and checks it against the configured
// attestation address. Returns domain.ErrNotFound when the order does not
// exist or carries no attested receipt.
func (s *OrderService) VerifyAttestation(ctx context.Context, orderID string) (AttestationReport, error) {
	if s.attesterAddr == "" {
		return AttestationReport{}, fmt.Errorf("%w: attestation is not configured", domain.ErrNotFound)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return AttestationReport{}, err
	}
	if order.TransactionID == "" {
		return AttestationReport{}, fmt.Errorf("%w: order %s has no settlement receipt", domain.ErrNotFound, orderID)
	}

	entries, err := s.decisions.List(ctx, orderID, domain.ListOpts{})
	if err != nil {
		return AttestationReport{}, err
	}
	var sig string
	for _, e := range entries {
		if e.Event != domain.DecisionEventExecuted {
			continue
		}
		if v, ok := e.Detail["attestation"].(string); ok && v != "" {
			sig = v
		}
	}
	if sig == "" {
		return AttestationReport{}, fmt.Errorf("%w: order %s has no attested receipt", domain.ErrNotFound, orderID)
	}

	valid, err := crypto.Verify(s.attesterAddr, sig, order.ID, order.TransactionID, order.ExecutedPrice)
	if err != nil {
		return AttestationReport{}, fmt.Errorf("service: verify attestation for order %s: %w", orderID, err)
	}

	return AttestationReport{
		OrderID:       order.ID,
		TransactionID: order.TransactionID,
		ExecutedPrice: order.ExecutedPrice,
		Attestation:   sig,
		Address:       s.attesterAddr,
		Valid:         valid,
	}, nil
}

func validate(req SubmitRequest) error {
	if req.TokenIn == "" {
		return fmt.Errorf("%w: token_in is required", domain.ErrInvalidOrder)
	}
	if req.TokenOut == "" {
		return fmt.Errorf("%w: token_out is required", domain.ErrInvalidOrder)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero", domain.ErrInvalidOrder)
	}
	switch domain.OrderType(req.OrderType) {
	case "", domain.OrderTypeMarket:
		return nil
	case domain.OrderTypeLimit, domain.OrderTypeSniper:
		return fmt.Errorf("%w: order type %q is not yet supported", domain.ErrInvalidOrder, req.OrderType)
	default:
		return fmt.Errorf("%w: unknown order type %q", domain.ErrInvalidOrder, req.OrderType)
	}
}
