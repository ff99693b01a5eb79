package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shiftplate/shiftplate/internal/domain"
)

// StatusHistoryRepository handles database operations for the status audit
// log.
type StatusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository creates a new StatusHistoryRepository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) *StatusHistoryRepository {
	return &StatusHistoryRepository{pool: pool}
}

// Append writes one history entry. Entries are written outside the status
// transaction: history is best-effort audit and must never roll back the
// change it records.
func (r *StatusHistoryRepository) Append(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	query, args, err := psql.
		Insert("status_history").
		Columns("task_id", "old_status", "new_status", "actor_id", "note").
		Values(entry.TaskID, entry.OldStatus, entry.NewStatus, entry.ActorID, entry.Note).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build Append query: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}

	return nil
}

// ByTaskID retrieves all history entries for a task, oldest first.
func (r *StatusHistoryRepository) ByTaskID(ctx context.Context, taskID int64) ([]*domain.StatusHistoryEntry, error) {
	query, args, err := psql.
		Select("id", "task_id", "old_status", "new_status", "actor_id", "note", "created_at").
		From("status_history").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ByTaskID query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ActorID,
			&entry.Note,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan status history entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}
