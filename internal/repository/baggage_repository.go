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

// BaggageRepository reads baggage documents from the `baggage` collection.
type BaggageRepository struct {
	pool *pgxpool.Pool
}

// NewBaggageRepository creates a new baggage repository.
func NewBaggageRepository(pool *pgxpool.Pool) *BaggageRepository {
	return &BaggageRepository{pool: pool}
}

// FindByPNR returns the baggage document for the given booking
// reference, or ErrNoDocument when none exists.
func (r *BaggageRepository) FindByPNR(ctx context.Context, pnr string) (*model.Baggage, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT doc
		FROM baggage
		WHERE booking_reference = $1
	`, pnr).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("baggage: find %s: %w", pnr, err)
	}

	baggage := &model.Baggage{}
	if err := json.Unmarshal(doc, baggage); err != nil {
		return nil, fmt.Errorf("baggage: decode %s: %w", pnr, err)
	}
	return baggage, nil
}
