package handlers

import (
	"net/http"
	"runtime"
	"time"

	"yliproxy/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status      string `json:"status"`
	Ready       bool   `json:"ready"`
	Version     string `json:"version"`
	Uptime      string `json:"uptime"`
	LastIndexed string `json:"lastIndexed,omitempty"`
	IndexError  string `json:"indexError,omitempty"`

	Artifacts           int  `json:"artifacts"`
	Thumbnails          int  `json:"thumbnails"`
	SnapshotStale       bool `json:"snapshotStale"`
	ConversionsInFlight int  `json:"conversionsInFlight"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	status := h.index.Status()

	response := HealthResponse{
		Ready:               status.Initialized,
		Version:             startup.Version,
		Uptime:              time.Since(h.startTime).Round(time.Second).String(),
		Artifacts:           status.Artifacts,
		Thumbnails:          status.Thumbnails,
		SnapshotStale:       status.Stale,
		ConversionsInFlight: h.resolver.InFlight(),
		GoVersion:           runtime.Version(),
		NumCPU:              runtime.NumCPU(),
		NumGoroutine:        runtime.NumGoroutine(),
	}

	if status.Initialized {
		response.Status = statusHealthy
		response.LastIndexed = status.RefreshedAt.Format(time.RFC3339)
	} else {
		response.Status = statusStarting
	}

	if status.LastError != "" {
		response.IndexError = status.LastError
		response.Status = statusDegraded
	}

	if !status.Initialized {
		writeJSONStatusCode(w, http.StatusServiceUnavailable, response)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, response)
}

// LivenessCheck always returns 200 while the server is running.
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

// ReadinessCheck returns 200 once the first index scan has succeeded
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.index.IsReady() {
		writeJSONStatusCode(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}
