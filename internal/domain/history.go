package domain

import "time"

// StatusHistoryEntry is an immutable audit record of a status change.
// The first entry for a task has a nil OldStatus. Entries are never mutated
// or deleted except by cascade when the task itself is destroyed.
type StatusHistoryEntry struct {
	ID        int64
	TaskID    int64
	OldStatus *TaskStatus
	NewStatus TaskStatus
	ActorID   *int64 // nil for system entries
	Note      string
	CreatedAt time.Time
}

// IsSystemEntry returns true if the entry was written by the lifecycle
// engine rather than a worker.
func (e *StatusHistoryEntry) IsSystemEntry() bool {
	return e.ActorID == nil
}
