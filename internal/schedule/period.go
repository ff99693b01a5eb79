// Package schedule provides pure time computations for the lifecycle engine:
// period keys that identify the current day, week, and month, and due-date
// computation for regenerated recurring tasks. Nothing here reads the clock;
// the current instant is always passed in, already converted to the
// deployment's reference timezone.
package schedule

import (
	"fmt"
	"time"

	"github.com/shiftplate/shiftplate/internal/domain"
)

// DayKey returns the calendar-date key for t, e.g. "2026-08-28".
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekKey returns the week key for t, e.g. "2026-W34".
//
// The week number is days-since-January-1 divided by 7, not an ISO-8601 week.
// The final week of a year is short and week numbering restarts on January 1
// regardless of weekday. This is a compatibility requirement, not a bug.
func WeekKey(t time.Time) string {
	week := (t.YearDay() - 1) / 7
	return fmt.Sprintf("%d-W%d", t.Year(), week)
}

// MonthKey returns the month key for t, e.g. "2026-08". Months are 1-based.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%d-%02d", t.Year(), int(t.Month()))
}

// PeriodKey returns the key for the period that contains t for the given
// recurrence type.
func PeriodKey(rec domain.Recurrence, t time.Time) (string, error) {
	switch rec {
	case domain.RecurrenceDaily:
		return DayKey(t), nil
	case domain.RecurrenceWeekly:
		return WeekKey(t), nil
	case domain.RecurrenceMonthly:
		return MonthKey(t), nil
	default:
		return "", fmt.Errorf("%w: no period key for %q", domain.ErrInvalidRecurrence, rec)
	}
}

// EndOfDay returns 23:59:59 on t's calendar date, in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// NextDueDate computes the due date for the successor of a recurring task:
// daily tasks are due at the end of the current day, weekly tasks six days
// out, monthly tasks at the end of the current month. The predecessor's due
// time-of-day is deliberately not carried over.
func NextDueDate(rec domain.Recurrence, now time.Time) (time.Time, error) {
	switch rec {
	case domain.RecurrenceDaily:
		return EndOfDay(now), nil
	case domain.RecurrenceWeekly:
		return EndOfDay(now.AddDate(0, 0, 6)), nil
	case domain.RecurrenceMonthly:
		// Day 0 of the next month normalizes to the last day of this one.
		lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location())
		return EndOfDay(lastDay), nil
	default:
		return time.Time{}, fmt.Errorf("%w: no due date for %q", domain.ErrInvalidRecurrence, rec)
	}
}
