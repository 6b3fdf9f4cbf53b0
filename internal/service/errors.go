package service

import "errors"

// ─── Aggregation Errors ─────────────────────────────────────

var (
	// ErrPNRNotFound is returned when the trip source is reachable but
	// holds no document for the PNR. It never counts against the trip
	// circuit breaker.
	ErrPNRNotFound = errors.New("no booking found for PNR")

	// ErrSourceUnavailable is returned when the trip source cannot be
	// reached and no cached trip exists, so there is nothing to return.
	ErrSourceUnavailable = errors.New("trip source unavailable and no cached data")
)
