package dto

import (
	"time"

	"github.com/shiftplate/shiftplate/internal/domain"
	"github.com/shiftplate/shiftplate/internal/service"
)

// LifecycleRunResponse reports one lifecycle pass to the cron caller.
type LifecycleRunResponse struct {
	StartedAt   time.Time      `json:"started_at"`
	Reminded    int            `json:"reminded"`
	Regenerated map[string]int `json:"regenerated"`
	Deleted     int            `json:"deleted"`
	StageErrors []string       `json:"stage_errors"`
}

// NewLifecycleRunResponse converts a pass report.
func NewLifecycleRunResponse(report *service.PassReport) LifecycleRunResponse {
	regenerated := make(map[string]int, len(report.Regenerated))
	for rec, count := range report.Regenerated {
		regenerated[string(rec)] = count
	}

	errors := report.StageErrors
	if errors == nil {
		errors = []string{}
	}

	return LifecycleRunResponse{
		StartedAt:   report.StartedAt,
		Reminded:    report.Reminded,
		Regenerated: regenerated,
		Deleted:     report.Deleted,
		StageErrors: errors,
	}
}

// HistoryEntryResponse is one audit row in GET /tasks/{id}/history.
type HistoryEntryResponse struct {
	ID        int64     `json:"id"`
	OldStatus *string   `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ActorID   *int64    `json:"actor_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskHistoryResponse is the body of GET /tasks/{id}/history.
type TaskHistoryResponse struct {
	TaskID  int64                  `json:"task_id"`
	Entries []HistoryEntryResponse `json:"entries"`
}

// NewTaskHistoryResponse converts audit entries.
func NewTaskHistoryResponse(taskID int64, entries []*domain.StatusHistoryEntry) TaskHistoryResponse {
	out := TaskHistoryResponse{TaskID: taskID, Entries: []HistoryEntryResponse{}}
	for _, e := range entries {
		var oldStatus *string
		if e.OldStatus != nil {
			s := string(*e.OldStatus)
			oldStatus = &s
		}
		out.Entries = append(out.Entries, HistoryEntryResponse{
			ID:        e.ID,
			OldStatus: oldStatus,
			NewStatus: string(e.NewStatus),
			ActorID:   e.ActorID,
			Note:      e.Note,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
