package api

import "net/http"

// RegisterRoutes mounts the health and contrast endpoints on mux. Unknown
// paths and wrong methods get the JSON error envelope.
func RegisterRoutes(mux *http.ServeMux, health *HealthHandlers, c *ContrastHandlers) {
	mux.HandleFunc("/health", health.Health)
	mux.HandleFunc("/ready", health.Ready)

	route(mux, http.MethodPost, "/v1/contrast/evaluate", c.Evaluate)
	route(mux, http.MethodPost, "/v1/contrast/report", c.Report)
	route(mux, http.MethodPost, "/v1/contrast/scan", c.Scan)
	route(mux, http.MethodGet, "/v1/contrast/sets", c.ListSets)
	route(mux, http.MethodGet, "/v1/contrast/sets/{name}", c.EvaluateSet)

	mux.HandleFunc("/", NotFound)
}

// route registers h for method and a 405 for every other method on path.
// The method-qualified pattern is the more specific one and wins.
func route(mux *http.ServeMux, method, path string, h http.HandlerFunc) {
	mux.HandleFunc(method+" "+path, h)
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", method)
		writeCodedError(w, r, ErrCodeMethodNotAllowed, "Method not allowed")
	})
}

// NotFound writes the standard 404 error.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeCodedError(w, r, ErrCodeNotFound, "The requested resource was not found")
}
