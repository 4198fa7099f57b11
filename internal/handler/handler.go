// Package handler contains HTTP request handlers for the planner API.
package handler

import (
	"encoding/json"
	"net/http"
)

// ServiceVersion is reported by the health endpoint.
const (
	ServiceVersion = "0.1.0"
	ServiceName    = "dragon-seats-optimizer"
)

// HealthResponse is the /health reply.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Service string `json:"service"`
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: ServiceVersion,
		Service: ServiceName,
	})
}

// writeJSON is a helper that writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
