package schedule_test

import (
	"testing"
	"time"

	"github.com/shiftplate/shiftplate/internal/domain"
	"github.com/shiftplate/shiftplate/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestDayKey(t *testing.T) {
	assert.Equal(t, "2026-08-28", schedule.DayKey(date(2026, time.August, 28, 9, 30)))
	assert.Equal(t, "2026-01-05", schedule.DayKey(date(2026, time.January, 5, 0, 0)))
}

func TestWeekKey(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"january 1st starts week 0", date(2026, time.January, 1, 12, 0), "2026-W0"},
		{"january 7th is still week 0", date(2026, time.January, 7, 12, 0), "2026-W0"},
		{"january 8th starts week 1", date(2026, time.January, 8, 12, 0), "2026-W1"},
		{"mid august", date(2026, time.August, 28, 12, 0), "2026-W34"},
		{"december 31st non-leap is week 52", date(2026, time.December, 31, 12, 0), "2026-W52"},
		// Week numbering restarts on January 1 regardless of weekday, so
		// the year boundary always splits a calendar week in two.
		{"new year restarts numbering", date(2027, time.January, 1, 0, 0), "2027-W0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, schedule.WeekKey(tt.t))
		})
	}
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2026-08", schedule.MonthKey(date(2026, time.August, 28, 12, 0)))
	assert.Equal(t, "2026-01", schedule.MonthKey(date(2026, time.January, 1, 0, 0)))
	assert.Equal(t, "2026-12", schedule.MonthKey(date(2026, time.December, 31, 23, 59)))
}

func TestPeriodKey(t *testing.T) {
	now := date(2026, time.August, 28, 12, 0)

	key, err := schedule.PeriodKey(domain.RecurrenceDaily, now)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-28", key)

	key, err = schedule.PeriodKey(domain.RecurrenceWeekly, now)
	require.NoError(t, err)
	assert.Equal(t, "2026-W34", key)

	key, err = schedule.PeriodKey(domain.RecurrenceMonthly, now)
	require.NoError(t, err)
	assert.Equal(t, "2026-08", key)

	_, err = schedule.PeriodKey(domain.RecurrenceOnce, now)
	assert.ErrorIs(t, err, domain.ErrInvalidRecurrence)
}

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name string
		rec  domain.Recurrence
		now  time.Time
		want time.Time
	}{
		{
			"daily is due end of the same day",
			domain.RecurrenceDaily,
			date(2026, time.August, 28, 9, 15),
			date(2026, time.August, 28, 23, 59).Add(59 * time.Second),
		},
		{
			"weekly is due six days out",
			domain.RecurrenceWeekly,
			date(2026, time.August, 28, 9, 15),
			date(2026, time.September, 3, 23, 59).Add(59 * time.Second),
		},
		{
			"weekly crosses the year boundary",
			domain.RecurrenceWeekly,
			date(2026, time.December, 29, 9, 15),
			date(2027, time.January, 4, 23, 59).Add(59 * time.Second),
		},
		{
			"monthly is due on the last day of the month",
			domain.RecurrenceMonthly,
			date(2026, time.September, 1, 0, 30),
			date(2026, time.September, 30, 23, 59).Add(59 * time.Second),
		},
		{
			"monthly handles february in a leap year",
			domain.RecurrenceMonthly,
			date(2028, time.February, 1, 8, 0),
			date(2028, time.February, 29, 23, 59).Add(59 * time.Second),
		},
		{
			"monthly handles february outside a leap year",
			domain.RecurrenceMonthly,
			date(2026, time.February, 10, 8, 0),
			date(2026, time.February, 28, 23, 59).Add(59 * time.Second),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := schedule.NextDueDate(tt.rec, tt.now)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}

	_, err := schedule.NextDueDate(domain.RecurrenceOnce, date(2026, time.August, 28, 9, 15))
	assert.ErrorIs(t, err, domain.ErrInvalidRecurrence)
}

func TestEndOfDayKeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	now := time.Date(2026, time.August, 28, 3, 0, 0, 0, loc)
	end := schedule.EndOfDay(now)

	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
	assert.Equal(t, 59, end.Second())
	assert.Equal(t, loc, end.Location())
	assert.Equal(t, now.Day(), end.Day())
}
