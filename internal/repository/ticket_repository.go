package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiva/pnrview/internal/model"
)

// TicketRepository reads ticket documents from the `tickets` collection.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// FindByPNRAndPassenger returns the ticket for one passenger on a
// booking, or ErrNoDocument — a passenger with no ticket is a valid
// state, not a failure.
func (r *TicketRepository) FindByPNRAndPassenger(ctx context.Context, pnr string, passengerNumber int) (*model.Ticket, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT doc
		FROM tickets
		WHERE booking_reference = $1
		  AND passenger_number = $2
	`, pnr, passengerNumber).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("tickets: find %s/%d: %w", pnr, passengerNumber, err)
	}

	ticket := &model.Ticket{}
	if err := json.Unmarshal(doc, ticket); err != nil {
		return nil, fmt.Errorf("tickets: decode %s/%d: %w", pnr, passengerNumber, err)
	}
	return ticket, nil
}
