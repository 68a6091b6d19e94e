// Package api provides HTTP API handlers for the Telesis contrast service.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/telesis/internal/middleware"
)

// HealthChecker defines the interface for components that can be health checked.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check statuses reported in HealthResponse.Checks.
const (
	checkOK            = "ok"
	checkError         = "error"
	checkNotConfigured = "not_configured"
	checkUnavailable   = "unavailable"
	checkDisabled      = "disabled"
)

// HealthHandlers provides health and readiness check endpoints for Kubernetes probes.
type HealthHandlers struct {
	// Rate limit store (optional, critical when configured)
	redisChecker HealthChecker

	// Page scanner (optional, never fails readiness)
	browserChecker HealthChecker

	metricsEnabled bool
}

// HealthHandlersConfig configures the health check handlers.
type HealthHandlersConfig struct {
	RedisChecker   HealthChecker
	BrowserChecker HealthChecker
	MetricsEnabled bool
}

// NewHealthHandlers creates a new health check handler.
func NewHealthHandlers(config HealthHandlersConfig) *HealthHandlers {
	return &HealthHandlers{
		redisChecker:   config.RedisChecker,
		browserChecker: config.BrowserChecker,
		metricsEnabled: config.MetricsEnabled,
	}
}

// HealthResponse represents the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Health handles GET /health (liveness probe).
// Returns 200 if the process can serve requests.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeMethodNotAllowed)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Checks:    map[string]string{"runtime": checkOK},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	writeHealth(w, r, http.StatusOK, response)
}

// Ready handles GET /ready (readiness probe).
// Returns 503 when the Redis rate limit store is configured but unreachable.
// A missing browser only disables page scans and is reported without failing.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeMethodNotAllowed)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	if h.redisChecker == nil {
		// In-memory rate limiting
		checks["redis"] = checkNotConfigured
	} else if err := h.redisChecker.HealthCheck(ctx); err != nil {
		checks["redis"] = checkError
		healthy = false
		slog.WarnContext(ctx, "redis health check failed", "error", err)
	} else {
		checks["redis"] = checkOK
	}

	if h.browserChecker == nil {
		checks["browser"] = checkNotConfigured
	} else if err := h.browserChecker.HealthCheck(ctx); err != nil {
		checks["browser"] = checkUnavailable
		slog.InfoContext(ctx, "page scanner unavailable", "error", err)
	} else {
		checks["browser"] = checkOK
	}

	if h.metricsEnabled {
		checks["metrics"] = checkOK
	} else {
		checks["metrics"] = checkDisabled
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeHealth(w, r, statusCode, HealthResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeHealth(w http.ResponseWriter, r *http.Request, status int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode health response", "error", err)
	}
}
