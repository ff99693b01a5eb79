package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shiftplate/shiftplate/internal/config"
	"github.com/shiftplate/shiftplate/internal/repository"
)

// RetentionSweeper deletes tasks that have sat in a terminal status beyond
// the grace window, child rows first. Re-running against a clean dataset is
// a no-op.
type RetentionSweeper struct {
	pool  *pgxpool.Pool
	tasks *repository.TaskRepository
	links *repository.TaskLinkRepository
}

// NewRetentionSweeper creates a RetentionSweeper.
func NewRetentionSweeper(
	pool *pgxpool.Pool,
	tasks *repository.TaskRepository,
	links *repository.TaskLinkRepository,
) *RetentionSweeper {
	return &RetentionSweeper{pool: pool, tasks: tasks, links: links}
}

// CleanupOldCompletedTasks runs one sweep. A failure deleting one task is
// logged and the sweep continues; deletion is transactional per task, never
// across tasks. Returns the number of tasks deleted.
func (s *RetentionSweeper) CleanupOldCompletedTasks(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.AddDate(0, 0, -config.RetentionDays)

	expired, err := s.tasks.FindRetired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find retired tasks: %w", err)
	}

	deleted := 0
	for _, task := range expired {
		if err := s.remove(ctx, task.ID); err != nil {
			slog.Error("task cleanup failed", "task_id", task.ID, "error", err)
			continue
		}
		deleted++
		slog.Info("retired task deleted",
			"task_id", task.ID,
			"status", task.Status,
			"completed_at", task.CompletedAt,
		)
	}

	slog.Info("retention sweep finished",
		"cutoff", cutoff,
		"candidates", len(expired),
		"deleted", deleted,
	)

	return deleted, nil
}

// remove deletes one task and its child rows in a single transaction.
func (s *RetentionSweeper) remove(ctx context.Context, taskID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err.Error() != "tx is closed" {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.links.DeleteChildRows(ctx, tx, taskID); err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, tx, taskID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
