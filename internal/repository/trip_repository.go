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

// TripRepository reads trip documents from the `trips` collection.
type TripRepository struct {
	pool *pgxpool.Pool
}

// NewTripRepository creates a new trip repository.
func NewTripRepository(pool *pgxpool.Pool) *TripRepository {
	return &TripRepository{pool: pool}
}

// FindByPNR returns the trip document for the given booking reference.
// Returns ErrNoDocument when the PNR is unknown — a reachable-store,
// absent-record signal, distinct from any transport failure.
func (r *TripRepository) FindByPNR(ctx context.Context, pnr string) (*model.Trip, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT doc
		FROM trips
		WHERE booking_reference = $1
	`, pnr).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("trips: find %s: %w", pnr, err)
	}

	trip := &model.Trip{}
	if err := json.Unmarshal(doc, trip); err != nil {
		return nil, fmt.Errorf("trips: decode %s: %w", pnr, err)
	}
	return trip, nil
}
