// Package notify holds the delivery transports for task reminders and the
// fan-out dispatcher that drives them. Transports are fire-and-forget from
// the engine's perspective: failures are logged and counted, never retried
// synchronously.
package notify

import (
	"context"
	"errors"

	"github.com/shiftplate/shiftplate/internal/domain"
)

// ErrSubscriptionGone signals that the push service rejected the endpoint
// permanently and the subscription should be pruned.
var ErrSubscriptionGone = errors.New("push subscription gone")

// Message is the transport-independent payload of one notification.
type Message struct {
	TaskID int64
	Title  string
	Body   string
	Tag    string
}

// EmailSender delivers one notification to an email recipient.
type EmailSender interface {
	SendEmail(ctx context.Context, recipient string, msg Message) error
}

// PushSender delivers one notification to a single Web Push subscription.
type PushSender interface {
	SendPush(ctx context.Context, sub *domain.PushSubscription, msg Message) error
}
