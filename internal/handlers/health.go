package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"mytube/internal/indexer"
	"mytube/internal/logging"
	"mytube/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

const pingTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status            string                  `json:"status"`
	Ready             bool                    `json:"ready"`
	Version           string                  `json:"version"`
	Uptime            string                  `json:"uptime"`
	Scanning          bool                    `json:"scanning"`
	MediaDir          string                  `json:"mediaDir"`
	InitialScanErrors int                     `json:"initialScanErrors,omitempty"`
	LastScan          *indexer.ScanStatistics `json:"lastScan,omitempty"`
	DatabaseError     string                  `json:"databaseError,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Catalog summary
	Channels int `json:"channels"`
	Videos   int `json:"videos"`
}

// HealthCheck returns the health status of the service. It answers 503
// while the startup scan runs or when the database is unreachable.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.scanner.GetHealthStatus()

	response := HealthResponse{
		Ready:             status.Ready,
		Version:           startup.Version,
		Uptime:            status.Uptime,
		Scanning:          status.Scanning,
		MediaDir:          status.MediaDir,
		InitialScanErrors: status.InitialScanErrors,
		LastScan:          status.LastScan,
		GoVersion:         runtime.Version(),
		NumCPU:            runtime.NumCPU(),
		NumGoroutine:      runtime.NumGoroutine(),
	}

	code := http.StatusOK
	response.Status = statusHealthy
	if !status.Ready {
		response.Status = statusStarting
		code = http.StatusServiceUnavailable
	}

	if err := h.ping(r.Context()); err != nil {
		logging.Warn("Health check: database unavailable: %v", err)
		response.Status = statusDegraded
		response.DatabaseError = err.Error()
		code = http.StatusServiceUnavailable
	} else if counts, err := h.catalog.CatalogCounts(r.Context()); err == nil {
		response.Channels = counts.Channels
		response.Videos = counts.Videos
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 once the startup scan is done and the database
// answers.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.scanner.GetHealthStatus().Ready && h.ping(r.Context()) == nil {
		writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

func (h *Handlers) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return h.catalog.Ping(ctx)
}
