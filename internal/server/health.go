package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusMissingToken = "missing token"
)

// HealthChecker serves the liveness and readiness probes of the HTTP transport.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
	version       string
}

// NewHealthChecker creates a HealthChecker that starts out ready.
// sc may be nil, in which case only the ready flag is checked.
func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
		version:       version,
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Uptime   string            `json:"uptime"`
	Upstream string            `json:"upstream,omitempty"`
	Checks   map[string]string `json:"checks"`
}

// checks evaluates every readiness condition. No upstream call is made;
// the token is only checked for presence.
func (h *HealthChecker) checks() (map[string]string, bool) {
	checks := map[string]string{
		"ready":    healthStatusOK,
		"shutdown": healthStatusOK,
	}
	ok := true

	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		ok = false
	}

	if h.serverContext != nil {
		if h.serverContext.IsShutdown() {
			checks["shutdown"] = healthStatusShuttingDown
			ok = false
		}
		if err := h.serverContext.Client().CheckCredentials(); err != nil {
			checks["credentials"] = healthStatusMissingToken
			ok = false
		} else {
			checks["credentials"] = healthStatusOK
		}
	}

	return checks, ok
}

// LivenessHandler handles /healthz. It only reports that the process is up.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler handles /readyz.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, ok := h.checks()
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
	})
}

// DetailedHealthHandler handles /healthz/detailed.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, ok := h.checks()
		resp := DetailedHealthResponse{
			Status:  healthStatusOK,
			Version: h.version,
			Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
			Checks:  checks,
		}
		if h.serverContext != nil {
			resp.Upstream = h.serverContext.Config().BaseURL
		}

		status := http.StatusOK
		if !ok {
			resp.Status = healthStatusNotReady
			if checks["shutdown"] == healthStatusShuttingDown {
				resp.Status = healthStatusShuttingDown
			}
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	})
}

// RegisterHealthEndpoints registers the health endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("GET /healthz", h.LivenessHandler())
	mux.Handle("GET /readyz", h.ReadinessHandler())
	mux.Handle("GET /healthz/detailed", h.DetailedHealthHandler())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
