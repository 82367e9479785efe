package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Sequence names used for human readable numbers.
const (
	SequenceStudent     = "student"
	SequenceInvoice     = "invoice"
	SequenceCertificate = "certificate"
)

// SequenceRepository hands out per-year counters (ASM-2024-0001, FAC-2024-00001, ...).
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs a SequenceRepository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

const nextSequenceQuery = `INSERT INTO number_sequences (name, year, value) VALUES ($1, $2, 1)
        ON CONFLICT (name, year) DO UPDATE SET value = number_sequences.value + 1
        RETURNING value`

// Next atomically increments and returns the counter for name and year.
func (r *SequenceRepository) Next(ctx context.Context, name string, year int) (int, error) {
	return nextSequence(ctx, r.db, name, year)
}

// NextTx is Next inside an existing transaction.
func (r *SequenceRepository) NextTx(ctx context.Context, tx *sqlx.Tx, name string, year int) (int, error) {
	return nextSequence(ctx, tx, name, year)
}

func nextSequence(ctx context.Context, q sqlx.QueryerContext, name string, year int) (int, error) {
	var value int
	if err := sqlx.GetContext(ctx, q, &value, nextSequenceQuery, name, year); err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", name, err)
	}
	return value, nil
}
