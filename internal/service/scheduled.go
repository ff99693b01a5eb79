package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shiftplate/shiftplate/internal/config"
	"github.com/shiftplate/shiftplate/internal/notify"
	"github.com/shiftplate/shiftplate/internal/repository"
)

// ScheduledPushNotifier handles the time-of-day push feature: tasks with a
// notify_at timestamp get one push to their assignees when that time
// arrives. This is the light-weight best-effort path driven by the minute
// tick; missed ticks inside the catch-up window are delivered late, older
// ones are dropped.
type ScheduledPushNotifier struct {
	tasks      *repository.TaskRepository
	links      *repository.TaskLinkRepository
	users      *repository.UserRepository
	dispatcher *notify.Dispatcher
}

// NewScheduledPushNotifier creates a ScheduledPushNotifier.
func NewScheduledPushNotifier(
	tasks *repository.TaskRepository,
	links *repository.TaskLinkRepository,
	users *repository.UserRepository,
	dispatcher *notify.Dispatcher,
) *ScheduledPushNotifier {
	return &ScheduledPushNotifier{tasks: tasks, links: links, users: users, dispatcher: dispatcher}
}

// DispatchDue pushes every pending scheduled notification whose time has
// come. Each task is marked notified after the attempt, delivered or not, so
// the tick never re-sends.
func (n *ScheduledPushNotifier) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	due, err := n.tasks.FindPendingScheduled(ctx, now, config.ScheduledPushWindow)
	if err != nil {
		return 0, fmt.Errorf("find pending scheduled tasks: %w", err)
	}

	dispatched := 0
	for _, task := range due {
		assigneeIDs, err := n.links.AssigneeIDs(ctx, task.ID)
		if err != nil {
			slog.Error("loading assignees failed", "task_id", task.ID, "error", err)
			continue
		}

		if len(assigneeIDs) > 0 {
			recipients, err := n.users.ActiveByIDs(ctx, assigneeIDs)
			if err != nil {
				slog.Error("loading scheduled push recipients failed", "task_id", task.ID, "error", err)
				continue
			}

			msg := notify.Message{
				TaskID: task.ID,
				Title:  "Scheduled task",
				Body:   fmt.Sprintf("%q is scheduled now.", task.Title),
				Tag:    fmt.Sprintf("task-scheduled-%d", task.ID),
			}
			for _, user := range recipients {
				n.dispatcher.PushToUser(ctx, user, msg)
			}
			dispatched++
		}

		if err := n.tasks.MarkNotified(ctx, task.ID, now); err != nil {
			slog.Error("marking task notified failed", "task_id", task.ID, "error", err)
		}
	}

	if len(due) > 0 {
		slog.Info("scheduled push tick finished", "due", len(due), "dispatched", dispatched)
	}

	return dispatched, nil
}
