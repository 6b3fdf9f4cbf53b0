package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shiva/pnrview/internal/breaker"
	"github.com/shiva/pnrview/internal/model"
	"github.com/shiva/pnrview/internal/service"
)

// BookingAggregator is the slice of the aggregation core the booking
// handler depends on.
type BookingAggregator interface {
	Aggregate(ctx context.Context, pnr string) (*model.BookingResponse, error)
}

// BookingHandler handles booking lookup HTTP requests.
type BookingHandler struct {
	aggregator BookingAggregator
	breakers   *breaker.Registry
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(aggregator BookingAggregator, breakers *breaker.Registry) *BookingHandler {
	return &BookingHandler{aggregator: aggregator, breakers: breakers}
}

// GetBooking handles GET /booking/{pnr}
//
// Response codes:
//
//	200 — Aggregated booking view (status SUCCESS or DEGRADED)
//	400 — PNR fails the ^[A-Z0-9]{6}$ pattern
//	404 — Trip source reachable but no booking for this PNR
//	503 — Trip source unreachable and no cached trip
//	500 — Unexpected error
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	pnr := mux.Vars(r)["pnr"]
	if !model.ValidPNR(pnr) {
		writeError(w, http.StatusBadRequest, "Bad Request",
			"pnr must be 6 uppercase alphanumeric characters")
		return
	}

	resp, err := h.aggregator.Aggregate(r.Context(), pnr)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPNRNotFound):
			writeError(w, http.StatusNotFound, "Not Found",
				"No booking found for PNR "+pnr)
		case errors.Is(err, service.ErrSourceUnavailable):
			writeUnavailable(w,
				"Booking data is temporarily unavailable. Please retry shortly.",
				h.tripBreakerState())
		default:
			log.Printf("[handler] booking %s: %v", pnr, err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error",
				"An unexpected error occurred.")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) tripBreakerState() string {
	if h.breakers != nil {
		if cb := h.breakers.Get("tripService"); cb != nil {
			return cb.State().String()
		}
	}
	return breaker.StateOpen.String()
}
