package dto

import "time"

// TransitionStatusRequest is the body for PATCH /tasks/{id}/status.
type TransitionStatusRequest struct {
	Status  string `json:"status"`
	ActorID *int64 `json:"actor_id"`
	Note    string `json:"note"`
}

// ChangeDueDateRequest is the body for PATCH /tasks/{id}/due-date. A null
// due_at clears the due date.
type ChangeDueDateRequest struct {
	DueAt *time.Time `json:"due_at"`
}
