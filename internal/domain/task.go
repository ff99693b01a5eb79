package domain

import "time"

// TaskStatus is the stored status of a task. The lifecycle engine only
// special-cases the two terminal statuses; organizations may configure
// additional display statuses, and any status the engine does not recognize
// is treated as open.
type TaskStatus string

const (
	TaskStatusPlanned    TaskStatus = "planned"
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusWaiting    TaskStatus = "waiting"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusVerified   TaskStatus = "verified"
)

// IsTerminal returns true for the fixed terminal statuses.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusVerified
}

// IsOpen returns true for every non-terminal status, including
// organization-defined ones.
func (s TaskStatus) IsOpen() bool {
	return !s.IsTerminal()
}

// TaskPriority represents the priority level of a task.
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

// IsValid checks if the priority is one of the allowed values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityCritical:
		return true
	default:
		return false
	}
}

// Recurrence describes how often a task regenerates after completion.
type Recurrence string

const (
	RecurrenceOnce    Recurrence = "once"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// IsValid checks if the recurrence is one of the allowed values.
func (r Recurrence) IsValid() bool {
	switch r {
	case RecurrenceOnce, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}

// Repeats returns true if the recurrence produces successor tasks.
func (r Recurrence) Repeats() bool {
	return r.IsValid() && r != RecurrenceOnce
}

// Task is a unit of work tracked for a restaurant crew.
type Task struct {
	ID               int64
	OrgID            int64
	Title            string
	Description      string
	Priority         TaskPriority
	Status           TaskStatus
	Recurrence       Recurrence
	DueAt            *time.Time
	NotifyAt         *time.Time
	NotifiedAt       *time.Time
	EstimatedMinutes *int32
	CreatedBy        int64
	CompletedAt      *time.Time
	VerifiedAt       *time.Time
	VerifiedBy       *int64
	LastReminderAt   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsOverdue reports whether an open task has passed its due date.
// Overdue is derived state, never stored.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueAt != nil && t.Status.IsOpen() && now.After(*t.DueAt)
}
