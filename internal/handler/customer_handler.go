package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shiva/pnrview/internal/breaker"
	"github.com/shiva/pnrview/internal/model"
	"github.com/shiva/pnrview/internal/service"
)

// CustomerAggregator is the slice of the aggregation core the customer
// handler depends on.
type CustomerAggregator interface {
	GetBookingsByCustomerID(ctx context.Context, customerID string) ([]model.BookingResponse, error)
}

// CustomerHandler handles customer reverse-lookup HTTP requests.
type CustomerHandler struct {
	aggregator CustomerAggregator
	breakers   *breaker.Registry
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(aggregator CustomerAggregator, breakers *breaker.Registry) *CustomerHandler {
	return &CustomerHandler{aggregator: aggregator, breakers: breakers}
}

// GetBookings handles GET /customer/{customerId}
//
// Returns every booking the customer appears on. An unknown customer
// yields an empty list, not an error.
//
// Response codes:
//
//	200 — {customerId, bookings, count, timestamp}
//	400 — customerId fails the ^[A-Za-z0-9]{1,20}$ pattern
//	503 — Every aggregation failed with an unreachable trip source
//	500 — Unexpected error
func (h *CustomerHandler) GetBookings(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["customerId"]
	if !model.ValidCustomerID(customerID) {
		writeError(w, http.StatusBadRequest, "Bad Request",
			"customerId must be 1-20 alphanumeric characters")
		return
	}

	bookings, err := h.aggregator.GetBookingsByCustomerID(r.Context(), customerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSourceUnavailable):
			writeUnavailable(w,
				"Booking data is temporarily unavailable. Please retry shortly.",
				h.tripBreakerState())
		default:
			log.Printf("[handler] customer %s: %v", customerID, err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error",
				"An unexpected error occurred.")
		}
		return
	}

	writeJSON(w, http.StatusOK, model.CustomerBookings{
		CustomerID: customerID,
		Bookings:   bookings,
		Count:      len(bookings),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *CustomerHandler) tripBreakerState() string {
	if h.breakers != nil {
		if cb := h.breakers.Get("tripService"); cb != nil {
			return cb.State().String()
		}
	}
	return breaker.StateOpen.String()
}
