// Package model contains domain models for the booking aggregation service.
// These structs map to the JSONB documents stored in PostgreSQL and to the
// aggregated views returned to clients.
package model

import "regexp"

// ─── Enums ──────────────────────────────────────────────────

// BookingStatus marks whether an aggregated response was assembled
// entirely from primary sources or with at least one substitution.
type BookingStatus string

const (
	// StatusSuccess means every source answered from its primary store.
	StatusSuccess BookingStatus = "SUCCESS"

	// StatusDegraded means at least one source was substituted by a
	// cached snapshot, a default, or an absent value with a fallback note.
	StatusDegraded BookingStatus = "DEGRADED"
)

// AllowanceUnit is the unit baggage allowances are expressed in.
type AllowanceUnit string

const (
	UnitKilograms AllowanceUnit = "kg"
	UnitPounds    AllowanceUnit = "lb"
)

// ─── Input validation ───────────────────────────────────────

var (
	pnrPattern        = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	customerIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,20}$`)
)

// ValidPNR reports whether s is a well-formed 6-character PNR.
func ValidPNR(s string) bool {
	return pnrPattern.MatchString(s)
}

// ValidCustomerID reports whether s is a well-formed customer identifier.
func ValidCustomerID(s string) bool {
	return customerIDPattern.MatchString(s)
}

// ─── Document models ────────────────────────────────────────

// Passenger is one traveller on a booking. PassengerNumber is unique
// within a PNR, starting at 1.
type Passenger struct {
	FirstName       string `json:"firstName"`
	MiddleName      string `json:"middleName,omitempty"`
	LastName        string `json:"lastName"`
	PassengerNumber int    `json:"passengerNumber"`
	CustomerID      string `json:"customerId,omitempty"`
	Seat            string `json:"seat,omitempty"`
}

// Flight is one segment of a trip. Timestamps are ISO-8601 strings and
// are passed through to clients verbatim.
type Flight struct {
	FlightNumber       string `json:"flightNumber"`
	DepartureAirport   string `json:"departureAirport"`
	DepartureTimestamp string `json:"departureTimestamp"`
	ArrivalAirport     string `json:"arrivalAirport"`
	ArrivalTimestamp   string `json:"arrivalTimestamp"`
}

// Trip maps to a document in the `trips` collection, keyed by PNR.
//
// Invariants: Passengers is non-empty and BookingReference equals the
// PNR that retrieved it.
type Trip struct {
	BookingReference string      `json:"bookingReference"`
	CabinClass       string      `json:"cabinClass"`
	Passengers       []Passenger `json:"passengers"`
	Flights          []Flight    `json:"flights"`
	FromCache        bool        `json:"fromCache"`
	CacheTimestamp   string      `json:"cacheTimestamp,omitempty"`
	PNRFallbackMsg   []string    `json:"pnrFallbackMsg,omitempty"`
}

// BaggageAllowance is the checked/carry-on allowance for one passenger.
type BaggageAllowance struct {
	PassengerNumber       int           `json:"passengerNumber"`
	AllowanceUnit         AllowanceUnit `json:"allowanceUnit"`
	CheckedAllowanceValue int           `json:"checkedAllowanceValue"`
	CarryOnAllowanceValue int           `json:"carryOnAllowanceValue"`
}

// Baggage maps to a document in the `baggage` collection, keyed by PNR.
//
// Invariant: at most one allowance entry per passenger of the associated
// trip. When FromDefault is set, every passenger has a defaulted entry.
type Baggage struct {
	BookingReference   string             `json:"bookingReference"`
	Allowances         []BaggageAllowance `json:"allowances"`
	FromCache          bool               `json:"fromCache"`
	FromDefault        bool               `json:"fromDefault"`
	BaggageFallbackMsg []string           `json:"baggageFallbackMsg,omitempty"`
}

// Ticket maps to a document in the `tickets` collection, keyed by
// (PNR, passenger number). A passenger may have zero or one ticket;
// absence is valid.
type Ticket struct {
	BookingReference  string   `json:"bookingReference"`
	PassengerNumber   int      `json:"passengerNumber"`
	TicketURL         string   `json:"ticketUrl"`
	TicketFallbackMsg []string `json:"ticketFallbackMsg,omitempty"`
}

// ─── Aggregated views ───────────────────────────────────────

// BookingResponse is the unified booking view assembled from the three
// sources. It is built per request and never retained.
type BookingResponse struct {
	PNR        string        `json:"pnr"`
	CabinClass string        `json:"cabinClass"`
	Passengers []Passenger   `json:"passengers"`
	Flights    []Flight      `json:"flights"`
	Baggage    *Baggage      `json:"baggage,omitempty"`
	Tickets    []Ticket      `json:"tickets"`
	Status     BookingStatus `json:"status"`
	FromCache  bool          `json:"fromCache"`
	Timestamp  string        `json:"timestamp"`
}

// CustomerBookings is the response for the customer reverse lookup.
type CustomerBookings struct {
	CustomerID string            `json:"customerId"`
	Bookings   []BookingResponse `json:"bookings"`
	Count      int               `json:"count"`
	Timestamp  string            `json:"timestamp"`
}
