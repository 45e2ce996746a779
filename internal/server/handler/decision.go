package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/swaprouter/internal/domain"
)

// DecisionService defines the methods that the decision handler requires from
// the service layer.
type DecisionService interface {
	ListDecisions(ctx context.Context, orderID string, opts domain.ListOpts) ([]domain.DecisionLogEntry, error)
}

// DecisionHandler serves the routing/execution audit trail.
type DecisionHandler struct {
	decisions DecisionService
	logger    *slog.Logger
}

// NewDecisionHandler creates a DecisionHandler with the given service and logger.
func NewDecisionHandler(decisions DecisionService, logger *slog.Logger) *DecisionHandler {
	return &DecisionHandler{
		decisions: decisions,
		logger:    logger,
	}
}

// listDecisionsResponse wraps the list decisions response.
type listDecisionsResponse struct {
	Decisions []domain.DecisionLogEntry `json:"decisions"`
}

// ListDecisions returns decision-log entries in insertion order, optionally
// filtered to a single order.
// GET /api/decisions?order_id=...&limit=50&offset=0
func (h *DecisionHandler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	opts := parseListOpts(r)

	entries, err := h.decisions.ListDecisions(r.Context(), orderID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list decisions failed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list decisions")
		return
	}

	if entries == nil {
		entries = []domain.DecisionLogEntry{}
	}

	writeJSON(w, http.StatusOK, listDecisionsResponse{Decisions: entries})
}
