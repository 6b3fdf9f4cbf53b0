package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/pnrview/internal/breaker"
	"github.com/shiva/pnrview/internal/model"
	"github.com/shiva/pnrview/internal/service"
)

// stubAggregator implements BookingAggregator and CustomerAggregator
// with canned responses.
type stubAggregator struct {
	resp     *model.BookingResponse
	bookings []model.BookingResponse
	err      error
	calls    int
}

func (s *stubAggregator) Aggregate(_ context.Context, pnr string) (*model.BookingResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubAggregator) GetBookingsByCustomerID(_ context.Context, customerID string) ([]model.BookingResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.bookings, nil
}

func newRouter(stub *stubAggregator, registry *breaker.Registry) *mux.Router {
	router := mux.NewRouter()
	bookingHandler := NewBookingHandler(stub, registry)
	customerHandler := NewCustomerHandler(stub, registry)
	router.HandleFunc("/booking/{pnr}", bookingHandler.GetBooking).Methods(http.MethodGet)
	router.HandleFunc("/customer/{customerId}", customerHandler.GetBookings).Methods(http.MethodGet)
	return router
}

func doGet(t *testing.T, router *mux.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ─── /booking/{pnr} ─────────────────────────────────────────

func TestGetBooking_Success(t *testing.T) {
	stub := &stubAggregator{resp: &model.BookingResponse{
		PNR:        "GHTW42",
		CabinClass: "ECONOMY",
		Status:     model.StatusSuccess,
		Passengers: []model.Passenger{{FirstName: "Ada", LastName: "Nilsen", PassengerNumber: 1}},
		Tickets:    []model.Ticket{},
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}}
	rec := doGet(t, newRouter(stub, breaker.NewRegistry()), "/booking/GHTW42")

	require.Equal(t, http.StatusOK, rec.Code)
	var body model.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "GHTW42", body.PNR)
	assert.Equal(t, model.StatusSuccess, body.Status)
}

func TestGetBooking_InvalidPNRNeverReachesAggregator(t *testing.T) {
	stub := &stubAggregator{}
	router := newRouter(stub, breaker.NewRegistry())

	for _, pnr := range []string{"abc-12", "ghtw42", "TOOLONG1", "A1"} {
		rec := doGet(t, router, "/booking/"+pnr)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "pnr %q", pnr)

		var body ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Bad Request", body.Error)
		assert.NotEmpty(t, body.Timestamp)
	}
	assert.Equal(t, 0, stub.calls, "validation failures must not reach the aggregator")
}

func TestGetBooking_NotFound(t *testing.T) {
	stub := &stubAggregator{err: service.ErrPNRNotFound}
	rec := doGet(t, newRouter(stub, breaker.NewRegistry()), "/booking/ZZZZ99")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Not Found", body.Error)
	assert.NotEmpty(t, body.Message)
	assert.NotEmpty(t, body.Timestamp)
}

func TestGetBooking_SourceUnavailableCarriesBreakerState(t *testing.T) {
	registry := breaker.NewRegistry()
	cfg := breaker.DefaultConfig("tripService")
	cfg.MinimumNumberOfCalls = 2
	cfg.FailureRateThreshold = 50
	cb := registry.GetOrCreate(cfg)
	cb.Record(breaker.OutcomeFailure, time.Millisecond)
	cb.Record(breaker.OutcomeFailure, time.Millisecond)
	require.Equal(t, breaker.StateOpen, cb.State())

	stub := &stubAggregator{err: service.ErrSourceUnavailable}
	rec := doGet(t, newRouter(stub, registry), "/booking/GHTW42")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Service Unavailable", body.Error)
	assert.Equal(t, "OPEN", body.CircuitBreakerState)
}

func TestGetBooking_InternalError(t *testing.T) {
	stub := &stubAggregator{err: errors.New("boom")}
	rec := doGet(t, newRouter(stub, breaker.NewRegistry()), "/booking/GHTW42")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal Server Error", body.Error)
	assert.NotContains(t, body.Message, "boom", "internal causes must not leak")
}

// ─── /customer/{customerId} ─────────────────────────────────

func TestGetCustomerBookings_Success(t *testing.T) {
	stub := &stubAggregator{bookings: []model.BookingResponse{
		{PNR: "GHTW42", Status: model.StatusSuccess},
		{PNR: "KLMX77", Status: model.StatusDegraded},
	}}
	rec := doGet(t, newRouter(stub, breaker.NewRegistry()), "/customer/CUST1001")

	require.Equal(t, http.StatusOK, rec.Code)
	var body model.CustomerBookings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "CUST1001", body.CustomerID)
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Bookings, 2)
	assert.NotEmpty(t, body.Timestamp)
}

func TestGetCustomerBookings_InvalidID(t *testing.T) {
	stub := &stubAggregator{}
	rec := doGet(t, newRouter(stub, breaker.NewRegistry()), "/customer/has%20space!")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, stub.calls)
}

func TestGetCustomerBookings_Unavailable(t *testing.T) {
	stub := &stubAggregator{err: service.ErrSourceUnavailable}
	rec := doGet(t, newRouter(stub, breaker.NewRegistry()), "/customer/CUST1001")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.CircuitBreakerState)
}

// ─── /circuitbreakers ───────────────────────────────────────

func TestCircuitBreakersEndpoint(t *testing.T) {
	registry := breaker.NewRegistry()
	registry.GetOrCreate(breaker.DefaultConfig("tripService"))
	cb := registry.GetOrCreate(breaker.DefaultConfig("baggageService"))
	cb.Record(breaker.OutcomeSuccess, 3*time.Millisecond)

	h := NewCircuitBreakersHandler(registry)
	router := mux.NewRouter()
	router.HandleFunc("/circuitbreakers", h.List).Methods(http.MethodGet)

	rec := doGet(t, router, "/circuitbreakers")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CircuitBreakers []breaker.Metrics `json:"circuitBreakers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.CircuitBreakers, 2)
	assert.Equal(t, "baggageService", body.CircuitBreakers[0].Name)
	assert.Equal(t, 1, body.CircuitBreakers[0].BufferedCalls)
	assert.Equal(t, "CLOSED", body.CircuitBreakers[0].State)
}
