package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shiftplate/shiftplate/internal/domain"
)

// taskColumns is the shared list of columns for task queries.
var taskColumns = []string{
	"id", "org_id", "title", "description", "priority", "status", "recurrence",
	"due_at", "notify_at", "notified_at", "estimated_minutes", "created_by",
	"completed_at", "verified_at", "verified_by", "last_reminder_at",
	"created_at", "updated_at",
}

// TaskRepository handles database operations for tasks.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.OrgID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.Status,
		&task.Recurrence,
		&task.DueAt,
		&task.NotifyAt,
		&task.NotifiedAt,
		&task.EstimatedMinutes,
		&task.CreatedBy,
		&task.CompletedAt,
		&task.VerifiedAt,
		&task.VerifiedBy,
		&task.LastReminderAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &task, nil
}

// scanTasks scans multiple rows into a slice of Task structs.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// GetByID retrieves a task by ID.
func (r *TaskRepository) GetByID(ctx context.Context, taskID int64) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for task: %w", err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// GetByIDForUpdate retrieves a task by ID with FOR UPDATE lock (within transaction).
func (r *TaskRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, taskID int64) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByIDForUpdate query for task %d: %w", taskID, err)
	}

	return scanTask(tx.QueryRow(ctx, query, args...))
}

// Create inserts a new task within a transaction and returns it with ID,
// CreatedAt, and UpdatedAt populated.
func (r *TaskRepository) Create(ctx context.Context, tx pgx.Tx, task *domain.Task) (*domain.Task, error) {
	if task.Priority == "" {
		task.Priority = domain.TaskPriorityMedium
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusPlanned
	}
	if task.Recurrence == "" {
		task.Recurrence = domain.RecurrenceOnce
	}

	query, args, err := psql.
		Insert("tasks").
		Columns(
			"org_id", "title", "description", "priority", "status", "recurrence",
			"due_at", "notify_at", "estimated_minutes", "created_by",
		).
		Values(
			task.OrgID,
			task.Title,
			task.Description,
			task.Priority,
			task.Status,
			task.Recurrence,
			task.DueAt,
			task.NotifyAt,
			task.EstimatedMinutes,
			task.CreatedBy,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for task: %w", err)
	}

	err = tx.QueryRow(ctx, query, args...).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

// UpdateStatus updates the task status with optimistic locking. Terminal
// timestamps are stamped the first time only: COALESCE keeps an existing
// completed_at/verified_at when a task is re-completed after being reopened.
// Returns ErrTaskModified if the task no longer has oldStatus.
func (r *TaskRepository) UpdateStatus(
	ctx context.Context,
	tx pgx.Tx,
	taskID int64,
	oldStatus domain.TaskStatus,
	newStatus domain.TaskStatus,
	actorID *int64,
) error {
	qb := psql.
		Update("tasks").
		Set("status", newStatus).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{
			"id":     taskID,
			"status": oldStatus,
		})

	switch newStatus {
	case domain.TaskStatusCompleted:
		qb = qb.Set("completed_at", sq.Expr("COALESCE(completed_at, NOW())"))
	case domain.TaskStatusVerified:
		qb = qb.Set("verified_at", sq.Expr("COALESCE(verified_at, NOW())"))
		if actorID != nil {
			qb = qb.Set("verified_by", sq.Expr("COALESCE(verified_by, ?)", *actorID))
		}
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("build UpdateStatus query for task %d: %w", taskID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTaskModified
	}

	return nil
}

// FindCompletedRecurring finds all tasks of the given recurrence type that
// reached a terminal status and are therefore due for regeneration.
func (r *TaskRepository) FindCompletedRecurring(ctx context.Context, rec domain.Recurrence) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{
			"recurrence": rec,
			"status":     []domain.TaskStatus{domain.TaskStatusCompleted, domain.TaskStatusVerified},
		}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build FindCompletedRecurring query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query completed recurring tasks: %w", err)
	}

	return scanTasks(rows)
}

// FindOpenDue finds all non-terminal tasks that carry a due date.
func (r *TaskRepository) FindOpenDue(ctx context.Context) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where("due_at IS NOT NULL").
		Where(sq.NotEq{"status": []domain.TaskStatus{domain.TaskStatusCompleted, domain.TaskStatusVerified}}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build FindOpenDue query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query open due tasks: %w", err)
	}

	return scanTasks(rows)
}

// FindRetired finds terminal tasks whose grace window elapsed before cutoff.
// The generic updated_at timestamp is a fallback for legacy rows that reached
// a terminal status before the terminal timestamps existed.
func (r *TaskRepository) FindRetired(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Or{
			sq.And{
				sq.Eq{"status": domain.TaskStatusCompleted},
				sq.Expr("COALESCE(completed_at, updated_at) < ?", cutoff),
			},
			sq.And{
				sq.Eq{"status": domain.TaskStatusVerified},
				sq.Expr("COALESCE(verified_at, updated_at) < ?", cutoff),
			},
		}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build FindRetired query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query retired tasks: %w", err)
	}

	return scanTasks(rows)
}

// SetRecurrence updates a task's recurrence within a transaction.
func (r *TaskRepository) SetRecurrence(ctx context.Context, tx pgx.Tx, taskID int64, rec domain.Recurrence) error {
	query, args, err := psql.
		Update("tasks").
		Set("recurrence", rec).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build SetRecurrence query for task %d: %w", taskID, err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("set recurrence: %w", err)
	}

	return nil
}

// SetLastReminder records when the most recent reminder for a task was sent.
func (r *TaskRepository) SetLastReminder(ctx context.Context, taskID int64, at time.Time) error {
	query, args, err := psql.
		Update("tasks").
		Set("last_reminder_at", at).
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build SetLastReminder query for task %d: %w", taskID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("set last reminder: %w", err)
	}

	return nil
}

// ClearTerminalReminderMarkers clears the reminder throttle on tasks that
// reached a terminal status, so a reopened task can be reminded again.
// Returns the number of markers cleared.
func (r *TaskRepository) ClearTerminalReminderMarkers(ctx context.Context) (int64, error) {
	query, args, err := psql.
		Update("tasks").
		Set("last_reminder_at", nil).
		Where(sq.Eq{"status": []domain.TaskStatus{domain.TaskStatusCompleted, domain.TaskStatusVerified}}).
		Where("last_reminder_at IS NOT NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build ClearTerminalReminderMarkers query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear terminal reminder markers: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ChangeDueDate updates a task's due date and clears the reminder throttle
// so escalation restarts against the new date.
func (r *TaskRepository) ChangeDueDate(ctx context.Context, taskID int64, dueAt *time.Time) error {
	query, args, err := psql.
		Update("tasks").
		Set("due_at", dueAt).
		Set("last_reminder_at", nil).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build ChangeDueDate query for task %d: %w", taskID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("change due date: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}

	return nil
}

// FindPendingScheduled finds open tasks whose notify_at time has arrived
// within the catch-up window and has not been dispatched yet.
func (r *TaskRepository) FindPendingScheduled(ctx context.Context, now time.Time, window time.Duration) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where("notify_at IS NOT NULL AND notified_at IS NULL").
		Where(sq.LtOrEq{"notify_at": now}).
		Where(sq.Gt{"notify_at": now.Add(-window)}).
		Where(sq.NotEq{"status": []domain.TaskStatus{domain.TaskStatusCompleted, domain.TaskStatusVerified}}).
		OrderBy("notify_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build FindPendingScheduled query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending scheduled tasks: %w", err)
	}

	return scanTasks(rows)
}

// MarkNotified records that the scheduled push for a task was dispatched.
func (r *TaskRepository) MarkNotified(ctx context.Context, taskID int64, at time.Time) error {
	query, args, err := psql.
		Update("tasks").
		Set("notified_at", at).
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build MarkNotified query for task %d: %w", taskID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}

	return nil
}

// Delete removes the task row within a transaction. Child rows must already
// be gone; the schema does not cascade.
func (r *TaskRepository) Delete(ctx context.Context, tx pgx.Tx, taskID int64) error {
	query, args, err := psql.
		Delete("tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Delete query for task %d: %w", taskID, err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	return nil
}
