package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"erwpulse/internal/websocket"
)

// HubStatsSource exposes live update counters.
type HubStatsSource interface {
	Stats() websocket.HubStats
}

// MetricsHandler serves operational counters that are not part of the
// Prometheus scrape.
type MetricsHandler struct {
	hub HubStatsSource
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(hub HubStatsSource) *MetricsHandler {
	return &MetricsHandler{hub: hub}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", h.GetHubStats)
	return r
}

// GetHubStats handles GET /api/ws/stats
func (h *MetricsHandler) GetHubStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.hub.Stats())
}
