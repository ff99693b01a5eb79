package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shiftplate/shiftplate/internal/domain"
	"github.com/shiftplate/shiftplate/internal/repository"
)

// DispatchResult counts delivery outcomes across channels for one user.
type DispatchResult struct {
	Sent   int
	Failed int
}

// Dispatcher fans one message out to a user's channels: their email address
// and every push subscription they registered. Either transport may be nil
// when the deployment has not configured it.
type Dispatcher struct {
	email EmailSender
	push  PushSender
	subs  *repository.PushSubscriptionRepository
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(email EmailSender, push PushSender, subs *repository.PushSubscriptionRepository) *Dispatcher {
	return &Dispatcher{email: email, push: push, subs: subs}
}

// NotifyUser delivers msg to every channel the user has. A failure on one
// channel is logged and does not stop the others.
func (d *Dispatcher) NotifyUser(ctx context.Context, user *domain.User, msg Message) DispatchResult {
	var result DispatchResult

	if d.email != nil && user.Email != "" {
		if err := d.email.SendEmail(ctx, user.Email, msg); err != nil {
			slog.Error("email delivery failed",
				"task_id", msg.TaskID,
				"user_id", user.ID,
				"error", err,
			)
			result.Failed++
		} else {
			result.Sent++
		}
	}

	pushResult := d.PushToUser(ctx, user, msg)
	result.Sent += pushResult.Sent
	result.Failed += pushResult.Failed

	return result
}

// PushToUser delivers msg to every push subscription the user has. Endpoints
// the push service reports gone are pruned.
func (d *Dispatcher) PushToUser(ctx context.Context, user *domain.User, msg Message) DispatchResult {
	var result DispatchResult

	if d.push == nil {
		return result
	}

	subs, err := d.subs.ByUserID(ctx, user.ID)
	if err != nil {
		slog.Error("load push subscriptions failed", "user_id", user.ID, "error", err)
		result.Failed++
		return result
	}

	for _, sub := range subs {
		err := d.push.SendPush(ctx, sub, msg)
		if err == nil {
			result.Sent++
			continue
		}

		if errors.Is(err, ErrSubscriptionGone) {
			if err := d.subs.Delete(ctx, sub.ID); err != nil {
				slog.Error("prune dead push subscription failed", "subscription_id", sub.ID, "error", err)
			} else {
				slog.Info("pruned dead push subscription", "subscription_id", sub.ID, "user_id", user.ID)
			}
			continue
		}

		slog.Error("push delivery failed",
			"task_id", msg.TaskID,
			"user_id", user.ID,
			"subscription_id", sub.ID,
			"error", err,
		)
		result.Failed++
	}

	return result
}
