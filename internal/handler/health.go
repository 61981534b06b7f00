package handler

import (
	"net/http"
	"runtime"
	"time"

	"fortnite-checker-api/pkg/response"
)

// Handler contains shared HTTP handlers and their dependencies.
type Handler struct {
	service   string
	version   string
	startTime time.Time
	now       func() time.Time
}

// New creates a new handler.
func New(service, version string) *Handler {
	return &Handler{
		service:   service,
		version:   version,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, HealthResponse{
		Status:    "OK",
		Timestamp: h.now().UTC(),
		Version:   h.version,
	})
}

// StatusChecks represents the checks in status response
type StatusChecks struct {
	MemoryMB   float64 `json:"memory_mb"`
	Goroutines int     `json:"goroutines"`
}

// StatusResponse represents the unified status response for bot monitoring
type StatusResponse struct {
	Service       string       `json:"service"`
	Status        string       `json:"status"`
	Version       string       `json:"version"`
	Timestamp     string       `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Checks        StatusChecks `json:"checks"`
}

// Status handles GET /api/status - unified health check for bot monitoring
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	now := h.now()
	resp := StatusResponse{
		Service:       h.service,
		Status:        "ok",
		Version:       h.version,
		Timestamp:     now.UTC().Format(time.RFC3339),
		UptimeSeconds: int64(now.Sub(h.startTime).Seconds()),
		Checks: StatusChecks{
			MemoryMB:   float64(int(memoryMB*100)) / 100,
			Goroutines: runtime.NumGoroutine(),
		},
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, resp)
}
