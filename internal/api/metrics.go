package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InternalTokenHeader carries the scrape token for internal endpoints.
const InternalTokenHeader = "X-Internal-Token"

// MetricsHandler creates an HTTP handler for the Prometheus metrics endpoint.
// It uses the provided registry to gather metrics.
func MetricsHandler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// InternalAuthMiddleware restricts access to requests with a valid token.
// If token is empty, no authentication is required.
// Uses constant-time comparison to prevent timing attacks.
func InternalAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get(InternalTokenHeader)
			if subtle.ConstantTimeCompare([]byte(headerToken), []byte(token)) != 1 {
				writeCodedError(w, r, ErrCodeForbidden, "Forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
