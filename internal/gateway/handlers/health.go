package handlers

import (
	"net/http"
	"time"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  int64  `json:"uptime"`
	Models  int    `json:"models"`
	Store   bool   `json:"store"`
}

// Health reports liveness and what the gateway was started with.
type Health struct {
	Version string
	Models  int
	Store   bool

	started time.Time
}

// NewHealth records the start time for uptime reporting.
func NewHealth(version string, models int, store bool) *Health {
	return &Health{Version: version, Models: models, Store: store, started: time.Now()}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	SendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.Version,
		Uptime:  int64(time.Since(h.started).Seconds()),
		Models:  h.Models,
		Store:   h.Store,
	})
}
