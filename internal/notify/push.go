package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/shiftplate/shiftplate/internal/domain"
)

// pushTTLSeconds bounds how long the push service holds an undelivered
// reminder. A stale reminder is worse than none.
const pushTTLSeconds = 3600

// VAPIDConfig holds the Web Push signing material.
type VAPIDConfig struct {
	Subscriber string // contact mailto: or https: URL
	PublicKey  string
	PrivateKey string
}

// WebPushSender delivers notifications through the Web Push protocol with
// VAPID authentication.
type WebPushSender struct {
	cfg VAPIDConfig
}

// NewWebPushSender creates a WebPushSender.
func NewWebPushSender(cfg VAPIDConfig) *WebPushSender {
	return &WebPushSender{cfg: cfg}
}

// pushPayload is the JSON body the service worker displays.
type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
}

// SendPush delivers one notification to a single subscription. Returns
// ErrSubscriptionGone when the push service reports the endpoint expired.
func (s *WebPushSender) SendPush(ctx context.Context, sub *domain.PushSubscription, msg Message) error {
	payload, err := json.Marshal(pushPayload{Title: msg.Title, Body: msg.Body, Tag: msg.Tag})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             pushTTLSeconds,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}
