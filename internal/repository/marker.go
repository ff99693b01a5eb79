package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shiftplate/shiftplate/internal/domain"
)

// PeriodMarkerRepository persists which (recurrence, period) pairs have been
// processed. Markers survive restarts, so regeneration stays at-most-once
// per period even across redeploys and overlapping cron invocations.
type PeriodMarkerRepository struct {
	pool *pgxpool.Pool
}

// NewPeriodMarkerRepository creates a new PeriodMarkerRepository.
func NewPeriodMarkerRepository(pool *pgxpool.Pool) *PeriodMarkerRepository {
	return &PeriodMarkerRepository{pool: pool}
}

// Acquire claims the period for processing. It returns true exactly once per
// (recurrence, periodKey) pair: the insert either lands or hits the primary
// key of a prior run.
func (r *PeriodMarkerRepository) Acquire(ctx context.Context, rec domain.Recurrence, periodKey string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO period_markers (recurrence, period_key)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, rec, periodKey)
	if err != nil {
		return false, fmt.Errorf("acquire period marker %s/%s: %w", rec, periodKey, err)
	}

	return tag.RowsAffected() == 1, nil
}
