package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/shiva/pnrview/internal/eventbus"
	"github.com/shiva/pnrview/internal/model"
	"github.com/shiva/pnrview/pkg/clock"
)

// TopicPNRFetched is the event bus topic carrying aggregation outcomes.
const TopicPNRFetched = "pnr.fetched"

// CustomerIndex maps a customer id to the set of PNRs they appear on.
type CustomerIndex interface {
	FindPNRs(ctx context.Context, customerID string) ([]string, error)
}

// fetchedEvent is the body published on TopicPNRFetched.
type fetchedEvent struct {
	PNR       string              `json:"pnr"`
	Status    model.BookingStatus `json:"status"`
	Timestamp int64               `json:"timestamp"` // epoch milliseconds
}

// Aggregator composes the three source fetchers into one consolidated
// booking view with partial-failure semantics: baggage and ticket
// failures degrade the response, only an unservable trip fails it.
type Aggregator struct {
	trips     *TripFetcher
	baggage   *BaggageFetcher
	tickets   *TicketFetcher
	customers CustomerIndex
	bus       *eventbus.Bus
	clock     clock.Clock
}

// NewAggregator wires the aggregation core.
func NewAggregator(
	trips *TripFetcher,
	baggage *BaggageFetcher,
	tickets *TicketFetcher,
	customers CustomerIndex,
	bus *eventbus.Bus,
	clk clock.Clock,
) *Aggregator {
	if clk == nil {
		clk = clock.New()
	}
	return &Aggregator{
		trips:     trips,
		baggage:   baggage,
		tickets:   tickets,
		customers: customers,
		bus:       bus,
		clock:     clk,
	}
}

// Aggregate assembles the unified booking view for pnr.
//
// Ordering: the trip and baggage fetches start concurrently; ticket
// fetches are dispatched once the trip's passenger list is known; the
// pnr.fetched event is published after the response is fully assembled
// and before it is returned.
//
// Error kinds: ErrPNRNotFound and ErrSourceUnavailable, both from the
// trip fetch. No other source failure fails the aggregate.
func (a *Aggregator) Aggregate(ctx context.Context, pnr string) (*model.BookingResponse, error) {
	// Baggage runs concurrently with the trip fetch.
	baggageCh := make(chan *model.Baggage, 1)
	go func() {
		baggageCh <- a.baggage.Fetch(ctx, pnr)
	}()

	trip, err := a.trips.Fetch(ctx, pnr)
	if err != nil {
		// The baggage goroutine is left to complete and cache normally.
		return nil, err
	}

	// Tickets are parameterized by passengers, so they dispatch only now.
	tickets := make([]*model.Ticket, len(trip.Passengers))
	var wg sync.WaitGroup
	for i, p := range trip.Passengers {
		wg.Add(1)
		go func(i, passengerNumber int) {
			defer wg.Done()
			tickets[i] = a.tickets.Fetch(ctx, pnr, passengerNumber)
		}(i, p.PassengerNumber)
	}
	wg.Wait()

	baggage := <-baggageCh
	if baggage == nil {
		baggage = a.baggage.Default(pnr, trip.Passengers)
	}

	resp := a.compose(pnr, trip, baggage, tickets)
	a.publish(pnr, resp.Status)
	return resp, nil
}

// compose builds the BookingResponse and marks its status.
func (a *Aggregator) compose(pnr string, trip *model.Trip, baggage *model.Baggage, tickets []*model.Ticket) *model.BookingResponse {
	present := make([]model.Ticket, 0, len(tickets))
	ticketDegraded := false
	for _, t := range tickets {
		if t == nil {
			continue
		}
		if len(t.TicketFallbackMsg) > 0 {
			ticketDegraded = true
		}
		present = append(present, *t)
	}
	sort.Slice(present, func(i, j int) bool {
		return present[i].PassengerNumber < present[j].PassengerNumber
	})

	status := model.StatusSuccess
	if trip.FromCache || baggage.FromCache || baggage.FromDefault || ticketDegraded {
		status = model.StatusDegraded
	}

	return &model.BookingResponse{
		PNR:        pnr,
		CabinClass: trip.CabinClass,
		Passengers: trip.Passengers,
		Flights:    trip.Flights,
		Baggage:    baggage,
		Tickets:    present,
		Status:     status,
		FromCache:  trip.FromCache,
		Timestamp:  a.clock.Now().UTC().Format(time.RFC3339),
	}
}

// publish emits the pnr.fetched event. Publication failure never
// affects the response.
func (a *Aggregator) publish(pnr string, status model.BookingStatus) {
	if a.bus == nil {
		return
	}
	body, err := json.Marshal(fetchedEvent{
		PNR:       pnr,
		Status:    status,
		Timestamp: a.clock.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("[aggregator] encode %s event for %s: %v", TopicPNRFetched, pnr, err)
		return
	}
	a.bus.Publish(TopicPNRFetched, body)
}

// GetBookingsByCustomerID aggregates every booking the customer appears
// on, in parallel. Bookings whose PNR has vanished are filtered out;
// when every aggregation fails with ErrSourceUnavailable the whole
// lookup is unavailable.
func (a *Aggregator) GetBookingsByCustomerID(ctx context.Context, customerID string) ([]model.BookingResponse, error) {
	pnrs, err := a.customers.FindPNRs(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("customer lookup %s: %w", customerID, err)
	}
	if len(pnrs) == 0 {
		return []model.BookingResponse{}, nil
	}

	type outcome struct {
		resp *model.BookingResponse
		err  error
	}
	outcomes := make([]outcome, len(pnrs))

	var wg sync.WaitGroup
	for i, pnr := range pnrs {
		wg.Add(1)
		go func(i int, pnr string) {
			defer wg.Done()
			resp, err := a.Aggregate(ctx, pnr)
			outcomes[i] = outcome{resp: resp, err: err}
		}(i, pnr)
	}
	wg.Wait()

	bookings := make([]model.BookingResponse, 0, len(pnrs))
	unavailable := 0
	for _, o := range outcomes {
		switch {
		case o.err == nil:
			bookings = append(bookings, *o.resp)
		case errors.Is(o.err, ErrPNRNotFound):
			// Stale index entry; skip.
		case errors.Is(o.err, ErrSourceUnavailable):
			unavailable++
		default:
			log.Printf("[aggregator] customer %s: aggregate failed: %v", customerID, o.err)
		}
	}

	if unavailable == len(pnrs) {
		return nil, fmt.Errorf("customer %s: %w", customerID, ErrSourceUnavailable)
	}
	return bookings, nil
}
