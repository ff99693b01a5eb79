package config

import "time"

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment.
	DefaultDatabaseURL = ""

	// DefaultTimezone is the reference timezone for day boundaries when
	// none is configured.
	DefaultTimezone = "UTC"
)

// Lifecycle engine tuning. These are fixed by the product, not deployment
// configuration.
const (
	// RetentionDays is the grace window before completed or verified tasks
	// are deleted, measured in calendar days from the terminal timestamp.
	RetentionDays = 3

	// ReminderThreshold is the elapsed-time fraction of the created-to-due
	// window at which a task becomes reminder-eligible.
	ReminderThreshold = 2.0 / 3.0

	// ReminderInterval is the minimum gap between two reminders for the
	// same task.
	ReminderInterval = 24 * time.Hour

	// WeeklyRegenDay is the weekday on which weekly recurring tasks are
	// regenerated.
	WeeklyRegenDay = time.Monday

	// ScheduledPushWindow bounds how far behind the minute tick may catch
	// up on time-of-day push notifications. Ticks missed for longer than
	// this are dropped rather than delivered late.
	ScheduledPushWindow = 15 * time.Minute
)
