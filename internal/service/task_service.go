package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shiftplate/shiftplate/internal/domain"
	"github.com/shiftplate/shiftplate/internal/repository"
)

// TaskService is the status-change call site exposed to route handlers. It
// records every observed transition without enforcing strict ordering: a
// planned task may jump straight to completed via a direct completion
// action.
type TaskService struct {
	pool     *pgxpool.Pool
	tasks    *repository.TaskRepository
	recorder *HistoryRecorder
}

// NewTaskService creates a TaskService.
func NewTaskService(pool *pgxpool.Pool, tasks *repository.TaskRepository, recorder *HistoryRecorder) *TaskService {
	return &TaskService{pool: pool, tasks: tasks, recorder: recorder}
}

// TransitionStatus moves a task to newStatus and records the transition.
// completed_at and verified_at are stamped on the first transition into
// their status and survive later transitions. A transition to the current
// status is a no-op and writes no history.
func (s *TaskService) TransitionStatus(
	ctx context.Context,
	taskID int64,
	actorID *int64,
	newStatus domain.TaskStatus,
	note string,
) error {
	// Custom statuses are allowed; only an empty status is rejected.
	if newStatus == "" {
		return domain.ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err.Error() != "tx is closed" {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	task, err := s.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return err
	}

	oldStatus := task.Status
	if oldStatus == newStatus {
		return nil
	}

	if err := s.tasks.UpdateStatus(ctx, tx, taskID, oldStatus, newStatus, actorID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.recorder.Record(ctx, taskID, &oldStatus, newStatus, actorID, note)

	slog.Info("task status changed",
		"task_id", taskID,
		"old_status", oldStatus,
		"new_status", newStatus,
	)

	return nil
}

// ChangeDueDate replaces a task's due date. The reminder throttle marker is
// cleared in the same statement so escalation restarts against the new date.
func (s *TaskService) ChangeDueDate(ctx context.Context, taskID int64, dueAt *time.Time) error {
	if err := s.tasks.ChangeDueDate(ctx, taskID, dueAt); err != nil {
		return err
	}

	slog.Info("task due date changed", "task_id", taskID, "due_at", dueAt)
	return nil
}
