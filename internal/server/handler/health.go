package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// QueueStats exposes the job queue's depth counters for the health endpoint.
type QueueStats interface {
	Len() int
	DelayedLen() int
}

// VenueInfo describes one configured liquidity venue in the health response.
type VenueInfo struct {
	Name    string  `json:"name"`
	FeeRate float64 `json:"fee_rate"`
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	queue  QueueStats
	venues []VenueInfo
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler reporting the given queue and
// configured venues.
func NewHealthHandler(queue QueueStats, venues []VenueInfo, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{queue: queue, venues: venues, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the server is
// alive, plus the current queue depth and the configured venues.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.queue != nil {
		resp["queue_depth"] = h.queue.Len()
		resp["queue_delayed"] = h.queue.DelayedLen()
	}
	if len(h.venues) > 0 {
		resp["venues"] = h.venues
	}
	writeJSON(w, http.StatusOK, resp)
}
