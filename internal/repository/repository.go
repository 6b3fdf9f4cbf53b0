// Package repository provides read-only access to the booking document
// store. Each source collection (trips, baggage, tickets) holds JSONB
// documents keyed by booking reference; queries are single-document
// lookups so the aggregation core stays independent of the schema.
package repository

import "errors"

// ErrNoDocument is returned when a lookup matches no document. Callers
// distinguish this business-logical absence from store failures: it is
// never counted against a circuit breaker.
var ErrNoDocument = errors.New("no document found")
