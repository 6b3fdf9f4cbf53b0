package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shiva/pnrview/internal/breaker"
	"github.com/shiva/pnrview/internal/model"
	"github.com/shiva/pnrview/internal/repository"
	"github.com/shiva/pnrview/pkg/cache"
	"github.com/shiva/pnrview/pkg/clock"
)

// ─── Source interfaces ──────────────────────────────────────
// The fetchers depend on query shapes, not concrete repositories, so
// tests substitute in-memory sources.

// TripSource finds one trip document by PNR.
type TripSource interface {
	FindByPNR(ctx context.Context, pnr string) (*model.Trip, error)
}

// BaggageSource finds one baggage document by PNR.
type BaggageSource interface {
	FindByPNR(ctx context.Context, pnr string) (*model.Baggage, error)
}

// TicketSource finds one ticket document by PNR and passenger number.
type TicketSource interface {
	FindByPNRAndPassenger(ctx context.Context, pnr string, passengerNumber int) (*model.Ticket, error)
}

// ─── Default baggage allowance ──────────────────────────────

const (
	defaultCheckedKg = 25
	defaultCarryOnKg = 7
)

// Cache key namespace.
const (
	tripKeyPrefix    = "trip:"
	baggageKeyPrefix = "baggage:"
)

// FetcherOptions carries the knobs shared by all three fetchers.
type FetcherOptions struct {
	// QueryTimeout bounds each document-store query.
	QueryTimeout time.Duration

	// CacheTTL bounds fallback snapshots.
	CacheTTL time.Duration

	// Clock supplies timestamps for breaker accounting and cache notes.
	Clock clock.Clock
}

func (o FetcherOptions) withDefaults() FetcherOptions {
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 5 * time.Second
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 10 * time.Minute
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	return o
}

// ─── TripFetcher ────────────────────────────────────────────

// TripFetcher wraps the trip query with its circuit breaker and the
// last-known-good cache fallback.
type TripFetcher struct {
	source  TripSource
	breaker *breaker.CircuitBreaker
	store   cache.Store
	opts    FetcherOptions
}

// NewTripFetcher creates the trip fetcher.
func NewTripFetcher(source TripSource, cb *breaker.CircuitBreaker, store cache.Store, opts FetcherOptions) *TripFetcher {
	return &TripFetcher{source: source, breaker: cb, store: store, opts: opts.withDefaults()}
}

// Fetch returns the trip for pnr, from the primary store when the
// breaker permits, from the fallback cache otherwise.
//
// Error kinds: ErrPNRNotFound (store reachable, no such PNR; recorded
// as IGNORED) and ErrSourceUnavailable (store unreachable, no cache).
func (f *TripFetcher) Fetch(ctx context.Context, pnr string) (*model.Trip, error) {
	if !f.breaker.TryAcquirePermission() {
		return f.fallback(ctx, pnr, "circuit open")
	}

	start := f.opts.Clock.Now()
	qctx, cancel := context.WithTimeout(ctx, f.opts.QueryTimeout)
	trip, err := f.source.FindByPNR(qctx, pnr)
	cancel()
	elapsed := f.opts.Clock.Since(start)

	if errors.Is(err, repository.ErrNoDocument) {
		// Business-logical absence: must not trip the breaker.
		f.breaker.Record(breaker.OutcomeIgnored, elapsed)
		return nil, fmt.Errorf("%w: %s", ErrPNRNotFound, pnr)
	}
	if err != nil {
		f.breaker.Record(breaker.OutcomeFailure, elapsed)
		return f.fallback(ctx, pnr, err.Error())
	}

	f.breaker.Record(breaker.OutcomeSuccess, elapsed)

	// Preserve the snapshot for degraded serving. Failure to cache is
	// logged and swallowed; the response is already in hand.
	f.cacheSnapshot(ctx, pnr, trip)

	trip.FromCache = false
	return trip, nil
}

func (f *TripFetcher) cacheSnapshot(ctx context.Context, pnr string, trip *model.Trip) {
	snapshot := *trip
	snapshot.FromCache = false
	snapshot.CacheTimestamp = f.opts.Clock.Now().UTC().Format(time.RFC3339)
	snapshot.PNRFallbackMsg = nil

	blob, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("[fetcher] trip %s: encode snapshot: %v", pnr, err)
		return
	}
	// A client disconnect must not abort the snapshot write.
	if err := f.store.Put(context.WithoutCancel(ctx), tripKeyPrefix+pnr, blob, f.opts.CacheTTL); err != nil {
		log.Printf("[fetcher] trip %s: cache write: %v", pnr, err)
	}
}

func (f *TripFetcher) fallback(ctx context.Context, pnr, reason string) (*model.Trip, error) {
	blob, ok, err := f.store.Get(ctx, tripKeyPrefix+pnr)
	if err != nil {
		log.Printf("[fetcher] trip %s: cache read: %v", pnr, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrSourceUnavailable, pnr, reason)
	}

	trip := &model.Trip{}
	if err := json.Unmarshal(blob, trip); err != nil {
		log.Printf("[fetcher] trip %s: decode cached snapshot: %v", pnr, err)
		return nil, fmt.Errorf("%w: %s (%s)", ErrSourceUnavailable, pnr, reason)
	}

	trip.FromCache = true
	trip.PNRFallbackMsg = []string{
		fmt.Sprintf("Trip data served from cache at %s", trip.CacheTimestamp),
	}
	return trip, nil
}

// ─── BaggageFetcher ─────────────────────────────────────────

// BaggageFetcher wraps the baggage query with its circuit breaker, the
// cache fallback, and the default allowance table.
type BaggageFetcher struct {
	source  BaggageSource
	breaker *breaker.CircuitBreaker
	store   cache.Store
	opts    FetcherOptions
}

// NewBaggageFetcher creates the baggage fetcher.
func NewBaggageFetcher(source BaggageSource, cb *breaker.CircuitBreaker, store cache.Store, opts FetcherOptions) *BaggageFetcher {
	return &BaggageFetcher{source: source, breaker: cb, store: store, opts: opts.withDefaults()}
}

// Fetch returns the baggage document for pnr, or nil when only the
// default allowance can be served. The caller synthesizes defaults with
// Default once the passenger list is known — baggage runs concurrently
// with the trip fetch, so passengers are not available here.
func (f *BaggageFetcher) Fetch(ctx context.Context, pnr string) *model.Baggage {
	if !f.breaker.TryAcquirePermission() {
		return f.fallback(ctx, pnr)
	}

	start := f.opts.Clock.Now()
	qctx, cancel := context.WithTimeout(ctx, f.opts.QueryTimeout)
	baggage, err := f.source.FindByPNR(qctx, pnr)
	cancel()
	elapsed := f.opts.Clock.Since(start)

	if errors.Is(err, repository.ErrNoDocument) {
		f.breaker.Record(breaker.OutcomeIgnored, elapsed)
		return nil
	}
	if err != nil {
		f.breaker.Record(breaker.OutcomeFailure, elapsed)
		log.Printf("[fetcher] baggage %s: query failed: %v", pnr, err)
		return f.fallback(ctx, pnr)
	}

	f.breaker.Record(breaker.OutcomeSuccess, elapsed)
	f.cacheSnapshot(ctx, pnr, baggage)

	baggage.FromCache = false
	baggage.FromDefault = false
	return baggage
}

// Default synthesizes the default allowance (25kg checked, 7kg
// carry-on) for every passenger on the booking.
func (f *BaggageFetcher) Default(pnr string, passengers []model.Passenger) *model.Baggage {
	allowances := make([]model.BaggageAllowance, 0, len(passengers))
	for _, p := range passengers {
		allowances = append(allowances, model.BaggageAllowance{
			PassengerNumber:       p.PassengerNumber,
			AllowanceUnit:         model.UnitKilograms,
			CheckedAllowanceValue: defaultCheckedKg,
			CarryOnAllowanceValue: defaultCarryOnKg,
		})
	}
	return &model.Baggage{
		BookingReference:   pnr,
		Allowances:         allowances,
		FromDefault:        true,
		BaggageFallbackMsg: []string{"Default baggage allowance applied"},
	}
}

func (f *BaggageFetcher) cacheSnapshot(ctx context.Context, pnr string, baggage *model.Baggage) {
	snapshot := *baggage
	snapshot.FromCache = false
	snapshot.FromDefault = false
	snapshot.BaggageFallbackMsg = nil

	blob, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("[fetcher] baggage %s: encode snapshot: %v", pnr, err)
		return
	}
	if err := f.store.Put(context.WithoutCancel(ctx), baggageKeyPrefix+pnr, blob, f.opts.CacheTTL); err != nil {
		log.Printf("[fetcher] baggage %s: cache write: %v", pnr, err)
	}
}

func (f *BaggageFetcher) fallback(ctx context.Context, pnr string) *model.Baggage {
	blob, ok, err := f.store.Get(ctx, baggageKeyPrefix+pnr)
	if err != nil {
		log.Printf("[fetcher] baggage %s: cache read: %v", pnr, err)
	}
	if !ok {
		// Nothing cached: signal the caller to apply defaults.
		return nil
	}

	baggage := &model.Baggage{}
	if err := json.Unmarshal(blob, baggage); err != nil {
		log.Printf("[fetcher] baggage %s: decode cached snapshot: %v", pnr, err)
		return nil
	}

	baggage.FromCache = true
	baggage.BaggageFallbackMsg = []string{"Baggage data served from cache"}
	return baggage
}

// ─── TicketFetcher ──────────────────────────────────────────

// TicketFetcher wraps the per-passenger ticket query with its circuit
// breaker. Tickets are never cached; absence is a valid state.
type TicketFetcher struct {
	source  TicketSource
	breaker *breaker.CircuitBreaker
	opts    FetcherOptions
}

// NewTicketFetcher creates the ticket fetcher.
func NewTicketFetcher(source TicketSource, cb *breaker.CircuitBreaker, opts FetcherOptions) *TicketFetcher {
	return &TicketFetcher{source: source, breaker: cb, opts: opts.withDefaults()}
}

// Fetch returns the ticket for one passenger. A nil result means the
// passenger simply has no ticket. When the lookup fails or the breaker
// is open, a placeholder ticket carrying TicketFallbackMsg is returned
// so the aggregate can be marked degraded.
func (f *TicketFetcher) Fetch(ctx context.Context, pnr string, passengerNumber int) *model.Ticket {
	if !f.breaker.TryAcquirePermission() {
		return f.unavailable(pnr, passengerNumber)
	}

	start := f.opts.Clock.Now()
	qctx, cancel := context.WithTimeout(ctx, f.opts.QueryTimeout)
	ticket, err := f.source.FindByPNRAndPassenger(qctx, pnr, passengerNumber)
	cancel()
	elapsed := f.opts.Clock.Since(start)

	if errors.Is(err, repository.ErrNoDocument) {
		f.breaker.Record(breaker.OutcomeIgnored, elapsed)
		return nil
	}
	if err != nil {
		f.breaker.Record(breaker.OutcomeFailure, elapsed)
		log.Printf("[fetcher] ticket %s/%d: query failed: %v", pnr, passengerNumber, err)
		return f.unavailable(pnr, passengerNumber)
	}

	f.breaker.Record(breaker.OutcomeSuccess, elapsed)
	return ticket
}

func (f *TicketFetcher) unavailable(pnr string, passengerNumber int) *model.Ticket {
	return &model.Ticket{
		BookingReference: pnr,
		PassengerNumber:  passengerNumber,
		TicketFallbackMsg: []string{
			fmt.Sprintf("Ticket lookup unavailable for passenger %d", passengerNumber),
		},
	}
}
