package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shiftplate/shiftplate/internal/domain"
	"github.com/shiftplate/shiftplate/internal/repository"
	"github.com/shiftplate/shiftplate/internal/schedule"
)

// Orchestrator is the single entry point for a lifecycle pass, invoked by an
// external cron trigger or the in-process scheduler. Stages run in a fixed
// order and each stage's failure is isolated: later stages always run.
//
// Overlapping invocations are tolerated rather than prevented. Duplicate
// work is bounded by the durable period markers and the per-task reminder
// throttle, not by mutual exclusion.
type Orchestrator struct {
	notifier    *ExpirationNotifier
	regenerator *Regenerator
	sweeper     *RetentionSweeper
	markers     *repository.PeriodMarkerRepository
	loc         *time.Location
	weeklyDay   time.Weekday
}

// NewOrchestrator creates an Orchestrator. loc is the reference timezone for
// all day boundaries; weeklyDay is the weekday on which weekly tasks
// regenerate.
func NewOrchestrator(
	notifier *ExpirationNotifier,
	regenerator *Regenerator,
	sweeper *RetentionSweeper,
	markers *repository.PeriodMarkerRepository,
	loc *time.Location,
	weeklyDay time.Weekday,
) *Orchestrator {
	return &Orchestrator{
		notifier:    notifier,
		regenerator: regenerator,
		sweeper:     sweeper,
		markers:     markers,
		loc:         loc,
		weeklyDay:   weeklyDay,
	}
}

// PassReport summarizes one lifecycle pass. It exists for logging and the
// trigger endpoint's response body; callers must not branch on it.
type PassReport struct {
	StartedAt   time.Time
	Reminded    int
	Regenerated map[domain.Recurrence]int
	Deleted     int
	StageErrors []string
}

// RunLifecyclePass runs one full pass: expiration notifier, then recurrence
// regeneration for every period boundary crossed, then the retention sweep.
func (o *Orchestrator) RunLifecyclePass(ctx context.Context, now time.Time) *PassReport {
	now = now.In(o.loc)
	report := &PassReport{
		StartedAt:   now,
		Regenerated: make(map[domain.Recurrence]int),
	}

	slog.Info("lifecycle pass started", "now", now)

	if summary, err := o.notifier.CheckForExpiringTasks(ctx, now); err != nil {
		slog.Error("expiration notifier stage failed", "error", err)
		report.StageErrors = append(report.StageErrors, "notifier: "+err.Error())
	} else {
		report.Reminded = summary.Reminded
	}

	// Daily boundaries are checked on every pass. Weekly and monthly
	// passes only happen on their designated day; the marker handles
	// repeated invocations within that day.
	o.runRecurrence(ctx, domain.RecurrenceDaily, now, report)
	if now.Weekday() == o.weeklyDay {
		o.runRecurrence(ctx, domain.RecurrenceWeekly, now, report)
	}
	if now.Day() == 1 {
		o.runRecurrence(ctx, domain.RecurrenceMonthly, now, report)
	}

	if deleted, err := o.sweeper.CleanupOldCompletedTasks(ctx, now); err != nil {
		slog.Error("retention sweeper stage failed", "error", err)
		report.StageErrors = append(report.StageErrors, "sweeper: "+err.Error())
	} else {
		report.Deleted = deleted
	}

	slog.Info("lifecycle pass finished",
		"reminded", report.Reminded,
		"regenerated", report.Regenerated,
		"deleted", report.Deleted,
		"stage_errors", len(report.StageErrors),
	)

	return report
}

// runRecurrence acquires the period marker for rec at now and, when this
// invocation is the first for the period, runs the regenerator.
func (o *Orchestrator) runRecurrence(ctx context.Context, rec domain.Recurrence, now time.Time, report *PassReport) {
	periodKey, err := schedule.PeriodKey(rec, now)
	if err != nil {
		slog.Error("period key computation failed", "recurrence", rec, "error", err)
		report.StageErrors = append(report.StageErrors, string(rec)+": "+err.Error())
		return
	}

	acquired, err := o.markers.Acquire(ctx, rec, periodKey)
	if err != nil {
		slog.Error("period marker acquisition failed",
			"recurrence", rec,
			"period_key", periodKey,
			"error", err,
		)
		report.StageErrors = append(report.StageErrors, string(rec)+": "+err.Error())
		return
	}
	if !acquired {
		slog.Debug("period already processed", "recurrence", rec, "period_key", periodKey)
		return
	}

	created, err := o.regenerator.ProcessRecurrenceType(ctx, rec, periodKey, now)
	if err != nil {
		slog.Error("recurrence regeneration stage failed",
			"recurrence", rec,
			"period_key", periodKey,
			"error", err,
		)
		report.StageErrors = append(report.StageErrors, string(rec)+": "+err.Error())
		return
	}
	report.Regenerated[rec] = created
}
