// Package handler contains HTTP request handlers for the booking
// aggregation API.
package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorBody is the JSON body returned for every error response.
type ErrorBody struct {
	Error               string `json:"error"`
	Message             string `json:"message"`
	Timestamp           string `json:"timestamp"`
	CircuitBreakerState string `json:"circuitBreakerState,omitempty"`
}

// writeJSON is a helper that writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes the standard error body with a server timestamp.
func writeError(w http.ResponseWriter, status int, errLabel, message string) {
	writeJSON(w, status, ErrorBody{
		Error:     errLabel,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// writeUnavailable writes the 503 body, which additionally reports the
// breaker state that caused the short-circuit.
func writeUnavailable(w http.ResponseWriter, message, breakerState string) {
	writeJSON(w, http.StatusServiceUnavailable, ErrorBody{
		Error:               "Service Unavailable",
		Message:             message,
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
		CircuitBreakerState: breakerState,
	})
}
