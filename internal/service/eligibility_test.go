package service_test

import (
	"testing"
	"time"

	"github.com/shiftplate/shiftplate/internal/domain"
	"github.com/shiftplate/shiftplate/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestElapsedFraction(t *testing.T) {
	createdAt := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	dueAt := createdAt.AddDate(0, 0, 9)

	tests := []struct {
		name string
		now  time.Time
		want float64
	}{
		{"at creation", createdAt, 0},
		{"one third through", createdAt.AddDate(0, 0, 3), 1.0 / 3.0},
		{"two thirds through", createdAt.AddDate(0, 0, 6), 2.0 / 3.0},
		{"at due", dueAt, 1},
		{"past due", dueAt.AddDate(0, 0, 9), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, service.ElapsedFraction(createdAt, dueAt, tt.now), 1e-9)
		})
	}
}

func TestElapsedFraction_DegenerateWindow(t *testing.T) {
	createdAt := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

	// Due at or before creation counts as fully elapsed.
	assert.Equal(t, 1.0, service.ElapsedFraction(createdAt, createdAt, createdAt))
	assert.Equal(t, 1.0, service.ElapsedFraction(createdAt, createdAt.Add(-time.Hour), createdAt))
}

func TestReminderEligible(t *testing.T) {
	createdAt := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	dueAt := createdAt.AddDate(0, 0, 9)

	task := func(due *time.Time) *domain.Task {
		return &domain.Task{
			Status:    domain.TaskStatusAssigned,
			CreatedAt: createdAt,
			DueAt:     due,
		}
	}

	t.Run("no due date is never eligible", func(t *testing.T) {
		assert.False(t, service.ReminderEligible(task(nil), dueAt.AddDate(0, 0, 30)))
	})

	t.Run("before the threshold", func(t *testing.T) {
		assert.False(t, service.ReminderEligible(task(&dueAt), createdAt.AddDate(0, 0, 5)))
	})

	t.Run("exactly at two thirds", func(t *testing.T) {
		assert.True(t, service.ReminderEligible(task(&dueAt), createdAt.AddDate(0, 0, 6)))
	})

	t.Run("overdue", func(t *testing.T) {
		assert.True(t, service.ReminderEligible(task(&dueAt), dueAt.Add(time.Second)))
	})

	t.Run("due at or before creation is immediately eligible", func(t *testing.T) {
		due := createdAt
		assert.True(t, service.ReminderEligible(task(&due), createdAt))
	})
}
