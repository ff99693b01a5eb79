package service

import (
	"context"
	"log/slog"

	"github.com/shiftplate/shiftplate/internal/domain"
	"github.com/shiftplate/shiftplate/internal/repository"
)

// HistoryRecorder appends status-change audit entries. Every code path that
// changes a stored status goes through Record, including the engine's own
// side effects.
type HistoryRecorder struct {
	history *repository.StatusHistoryRepository
}

// NewHistoryRecorder creates a HistoryRecorder.
func NewHistoryRecorder(history *repository.StatusHistoryRepository) *HistoryRecorder {
	return &HistoryRecorder{history: history}
}

// Record appends one audit entry. A failed write is logged and swallowed:
// history is best-effort audit and must never block or roll back the status
// change it describes.
func (r *HistoryRecorder) Record(
	ctx context.Context,
	taskID int64,
	oldStatus *domain.TaskStatus,
	newStatus domain.TaskStatus,
	actorID *int64,
	note string,
) {
	entry := &domain.StatusHistoryEntry{
		TaskID:    taskID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ActorID:   actorID,
		Note:      note,
	}

	if err := r.history.Append(ctx, entry); err != nil {
		slog.Error("status history write failed",
			"task_id", taskID,
			"new_status", newStatus,
			"error", err,
		)
	}
}
