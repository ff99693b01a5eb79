package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// childTables lists every table holding rows owned by a task, in deletion
// order. Dependents go first; the task row itself is deleted separately.
var childTables = []string{
	"task_tags",
	"task_checklist_items",
	"task_comments",
	"task_photos",
	"task_assignees",
	"status_history",
}

// TaskLinkRepository handles the task_assignees and task_tags join tables
// and cascading deletes of task-owned child rows.
type TaskLinkRepository struct {
	pool *pgxpool.Pool
}

// NewTaskLinkRepository creates a new TaskLinkRepository.
func NewTaskLinkRepository(pool *pgxpool.Pool) *TaskLinkRepository {
	return &TaskLinkRepository{pool: pool}
}

// AssigneeIDs returns the user ids currently assigned to a task.
func (r *TaskLinkRepository) AssigneeIDs(ctx context.Context, taskID int64) ([]int64, error) {
	query, args, err := psql.
		Select("user_id").
		From("task_assignees").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("user_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build AssigneeIDs query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignees: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignee id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return ids, nil
}

// AddAssignee links a user to a task. Duplicate links are ignored.
func (r *TaskLinkRepository) AddAssignee(ctx context.Context, taskID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		taskID, userID)
	if err != nil {
		return fmt.Errorf("add assignee: %w", err)
	}
	return nil
}

// AddTag links a tag to a task. Duplicate links are ignored.
func (r *TaskLinkRepository) AddTag(ctx context.Context, taskID, tagID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO task_tags (task_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		taskID, tagID)
	if err != nil {
		return fmt.Errorf("add tag: %w", err)
	}
	return nil
}

// CopyAssignees copies all assignee links from one task to another within a
// transaction. Conflicting links are ignored, which makes the copy
// idempotent.
func (r *TaskLinkRepository) CopyAssignees(ctx context.Context, tx pgx.Tx, fromTaskID, toTaskID int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO task_assignees (task_id, user_id)
		SELECT $2, user_id FROM task_assignees WHERE task_id = $1
		ON CONFLICT DO NOTHING
	`, fromTaskID, toTaskID)
	if err != nil {
		return fmt.Errorf("copy assignees from task %d to %d: %w", fromTaskID, toTaskID, err)
	}
	return nil
}

// CopyTags copies all tag links from one task to another within a
// transaction. Conflicting links are ignored.
func (r *TaskLinkRepository) CopyTags(ctx context.Context, tx pgx.Tx, fromTaskID, toTaskID int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO task_tags (task_id, tag_id)
		SELECT $2, tag_id FROM task_tags WHERE task_id = $1
		ON CONFLICT DO NOTHING
	`, fromTaskID, toTaskID)
	if err != nil {
		return fmt.Errorf("copy tags from task %d to %d: %w", fromTaskID, toTaskID, err)
	}
	return nil
}

// DeleteChildRows removes every row owned by the task, dependents first,
// within a transaction.
func (r *TaskLinkRepository) DeleteChildRows(ctx context.Context, tx pgx.Tx, taskID int64) error {
	for _, table := range childTables {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE task_id = $1`, taskID); err != nil {
			return fmt.Errorf("delete %s rows for task %d: %w", table, taskID, err)
		}
	}
	return nil
}
