package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shiftplate/shiftplate/internal/domain"
	"github.com/shiftplate/shiftplate/internal/repository"
	"github.com/shiftplate/shiftplate/internal/schedule"
)

// Regenerator clones completed recurring tasks into fresh planned tasks at
// period boundaries. The orchestrator gates each call with a durable period
// marker; a single call is idempotent on its own because every successful
// clone flips the predecessor's recurrence to once.
type Regenerator struct {
	pool     *pgxpool.Pool
	tasks    *repository.TaskRepository
	links    *repository.TaskLinkRepository
	recorder *HistoryRecorder
}

// NewRegenerator creates a Regenerator.
func NewRegenerator(
	pool *pgxpool.Pool,
	tasks *repository.TaskRepository,
	links *repository.TaskLinkRepository,
	recorder *HistoryRecorder,
) *Regenerator {
	return &Regenerator{pool: pool, tasks: tasks, links: links, recorder: recorder}
}

// ProcessRecurrenceType regenerates every completed or verified task of the
// given recurrence type. A failure cloning one task is logged and does not
// abort the rest of the batch. Returns the number of successors created.
//
// A recurrence that cannot repeat reaching this point is a contract
// violation and is returned to the caller.
func (g *Regenerator) ProcessRecurrenceType(
	ctx context.Context,
	rec domain.Recurrence,
	periodKey string,
	now time.Time,
) (int, error) {
	if !rec.Repeats() {
		return 0, fmt.Errorf("%w: cannot regenerate %q tasks", domain.ErrInvalidRecurrence, rec)
	}

	candidates, err := g.tasks.FindCompletedRecurring(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("find completed recurring tasks: %w", err)
	}

	created := 0
	for _, task := range candidates {
		successor, err := g.regenerate(ctx, task, rec, now)
		if err != nil {
			slog.Error("task regeneration failed",
				"task_id", task.ID,
				"recurrence", rec,
				"period_key", periodKey,
				"error", err,
			)
			continue
		}
		created++
		slog.Info("recurring task regenerated",
			"task_id", task.ID,
			"successor_id", successor.ID,
			"recurrence", rec,
			"period_key", periodKey,
		)
	}

	slog.Info("recurrence pass finished",
		"recurrence", rec,
		"period_key", periodKey,
		"candidates", len(candidates),
		"created", created,
	)

	return created, nil
}

// regenerate clones one predecessor into a planned successor. The clone, its
// copied links, and the predecessor's flip to once commit as one unit: the
// flip happens last inside the transaction, so a clone that fails partway
// leaves the predecessor recurring and eligible for a retry.
func (g *Regenerator) regenerate(
	ctx context.Context,
	pred *domain.Task,
	rec domain.Recurrence,
	now time.Time,
) (*domain.Task, error) {
	dueAt, err := schedule.NextDueDate(rec, now)
	if err != nil {
		return nil, err
	}

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err.Error() != "tx is closed" {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	successor := &domain.Task{
		OrgID:            pred.OrgID,
		Title:            pred.Title,
		Description:      pred.Description,
		Priority:         pred.Priority,
		Status:           domain.TaskStatusPlanned,
		Recurrence:       rec,
		DueAt:            &dueAt,
		EstimatedMinutes: pred.EstimatedMinutes,
		CreatedBy:        pred.CreatedBy,
	}

	if _, err := g.tasks.Create(ctx, tx, successor); err != nil {
		return nil, err
	}

	if err := g.links.CopyAssignees(ctx, tx, pred.ID, successor.ID); err != nil {
		return nil, err
	}

	if err := g.links.CopyTags(ctx, tx, pred.ID, successor.ID); err != nil {
		return nil, err
	}

	if err := g.tasks.SetRecurrence(ctx, tx, pred.ID, domain.RecurrenceOnce); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	// The audit note is the only link between predecessor and successor.
	g.recorder.Record(ctx, successor.ID, nil, domain.TaskStatusPlanned, nil,
		fmt.Sprintf("Created from recurring task #%d", pred.ID))

	return successor, nil
}
