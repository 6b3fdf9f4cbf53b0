package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerRepository reads the customer index: documents mapping a
// customer id to the set of PNRs that customer appears on.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository creates a new customer index repository.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// customerDoc is the shape of a `customer_bookings` document.
type customerDoc struct {
	CustomerID string   `json:"customerId"`
	PNRs       []string `json:"pnrs"`
}

// FindPNRs returns every PNR the customer appears on. An unknown
// customer yields an empty slice, not an error.
func (r *CustomerRepository) FindPNRs(ctx context.Context, customerID string) ([]string, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT doc
		FROM customer_bookings
		WHERE customer_id = $1
	`, customerID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("customer_bookings: find %s: %w", customerID, err)
	}

	parsed := customerDoc{}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("customer_bookings: decode %s: %w", customerID, err)
	}
	return parsed.PNRs, nil
}
