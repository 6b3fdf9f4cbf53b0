package handler

import (
	"net/http"

	"github.com/shiva/pnrview/internal/breaker"
)

// CircuitBreakersHandler exposes per-breaker metrics.
type CircuitBreakersHandler struct {
	breakers *breaker.Registry
}

// NewCircuitBreakersHandler creates the circuit breaker metrics handler.
func NewCircuitBreakersHandler(breakers *breaker.Registry) *CircuitBreakersHandler {
	return &CircuitBreakersHandler{breakers: breakers}
}

// List handles GET /circuitbreakers
//
// Reports state, bufferedCalls, failedCalls, successfulCalls,
// notPermittedCalls, failureRate, and slowCallRate for each breaker.
func (h *CircuitBreakersHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"circuitBreakers": h.breakers.Snapshots(),
	})
}
