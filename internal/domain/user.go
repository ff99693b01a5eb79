package domain

import "time"

// User is a worker registered in an organization.
type User struct {
	ID        int64
	OrgID     int64
	Name      string
	Email     string
	IsActive  bool
	CreatedAt time.Time
}

// PushSubscription is a Web Push endpoint registered by a user's browser.
type PushSubscription struct {
	ID        int64
	UserID    int64
	Endpoint  string
	P256dh    string
	Auth      string
	CreatedAt time.Time
}
