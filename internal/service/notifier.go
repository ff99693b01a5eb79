package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shiftplate/shiftplate/internal/config"
	"github.com/shiftplate/shiftplate/internal/domain"
	"github.com/shiftplate/shiftplate/internal/notify"
	"github.com/shiftplate/shiftplate/internal/repository"
)

// ExpirationNotifier reminds assignees about tasks approaching or past their
// due date. At most one reminder per task goes out per 24-hour window,
// tracked on the task row itself so the throttle survives restarts.
type ExpirationNotifier struct {
	tasks      *repository.TaskRepository
	links      *repository.TaskLinkRepository
	users      *repository.UserRepository
	dispatcher *notify.Dispatcher
}

// NewExpirationNotifier creates an ExpirationNotifier.
func NewExpirationNotifier(
	tasks *repository.TaskRepository,
	links *repository.TaskLinkRepository,
	users *repository.UserRepository,
	dispatcher *notify.Dispatcher,
) *ExpirationNotifier {
	return &ExpirationNotifier{tasks: tasks, links: links, users: users, dispatcher: dispatcher}
}

// NotifySummary counts one notifier pass for operational logging.
type NotifySummary struct {
	Examined int
	Reminded int
	Sent     int
	Failed   int
}

// ElapsedFraction returns how much of the created-to-due window has passed
// at now. A window of zero or negative length counts as fully elapsed.
func ElapsedFraction(createdAt, dueAt, now time.Time) float64 {
	window := dueAt.Sub(createdAt)
	if window <= 0 {
		return 1
	}
	return float64(now.Sub(createdAt)) / float64(window)
}

// ReminderEligible reports whether a task qualifies for a reminder at now:
// past due, or at least two thirds of the way through its due window.
func ReminderEligible(task *domain.Task, now time.Time) bool {
	if task.DueAt == nil {
		return false
	}
	if now.After(*task.DueAt) {
		return true
	}
	return ElapsedFraction(task.CreatedAt, *task.DueAt, now) >= config.ReminderThreshold
}

// CheckForExpiringTasks runs one notifier pass over all open tasks with due
// dates. Per-task and per-recipient failures are logged and skipped; the
// returned error covers only the scan itself.
func (n *ExpirationNotifier) CheckForExpiringTasks(ctx context.Context, now time.Time) (NotifySummary, error) {
	var summary NotifySummary

	// Tasks that reached a terminal status keep no throttle state, so a
	// reopened task starts a fresh reminder cycle.
	if cleared, err := n.tasks.ClearTerminalReminderMarkers(ctx); err != nil {
		slog.Error("clearing terminal reminder markers failed", "error", err)
	} else if cleared > 0 {
		slog.Debug("cleared terminal reminder markers", "count", cleared)
	}

	open, err := n.tasks.FindOpenDue(ctx)
	if err != nil {
		return summary, fmt.Errorf("find open due tasks: %w", err)
	}

	summary.Examined = len(open)

	for _, task := range open {
		if !ReminderEligible(task, now) {
			continue
		}
		if task.LastReminderAt != nil && now.Sub(*task.LastReminderAt) < config.ReminderInterval {
			continue
		}

		assigneeIDs, err := n.links.AssigneeIDs(ctx, task.ID)
		if err != nil {
			slog.Error("loading assignees failed", "task_id", task.ID, "error", err)
			continue
		}
		// No recipients, no reminder, no throttle marker.
		if len(assigneeIDs) == 0 {
			continue
		}

		recipients, err := n.users.ActiveByIDs(ctx, assigneeIDs)
		if err != nil {
			slog.Error("loading reminder recipients failed", "task_id", task.ID, "error", err)
			continue
		}
		if len(recipients) == 0 {
			continue
		}

		msg := reminderMessage(task, now)
		for _, user := range recipients {
			result := n.dispatcher.NotifyUser(ctx, user, msg)
			summary.Sent += result.Sent
			summary.Failed += result.Failed
		}

		// The marker moves once per task after the recipient batch,
		// whether or not every delivery landed.
		if err := n.tasks.SetLastReminder(ctx, task.ID, now); err != nil {
			slog.Error("updating reminder marker failed", "task_id", task.ID, "error", err)
		}
		summary.Reminded++
	}

	slog.Info("expiration notifier pass finished",
		"examined", summary.Examined,
		"reminded", summary.Reminded,
		"sent", summary.Sent,
		"failed", summary.Failed,
	)

	return summary, nil
}

func reminderMessage(task *domain.Task, now time.Time) notify.Message {
	var body string
	if now.After(*task.DueAt) {
		body = fmt.Sprintf("%q is overdue, it was due %s.", task.Title, task.DueAt.Format("Mon Jan 2 15:04"))
	} else {
		body = fmt.Sprintf("%q is due %s.", task.Title, task.DueAt.Format("Mon Jan 2 15:04"))
	}

	return notify.Message{
		TaskID: task.ID,
		Title:  "Task reminder",
		Body:   body,
		Tag:    fmt.Sprintf("task-reminder-%d", task.ID),
	}
}
