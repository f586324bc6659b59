// Package reminder nudges enrolled users who have not heard from the bot
// for a full period.
package reminder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/creatorbot/core/logger"
	"github.com/m3rciful/creatorbot/internal/challenge"
)

const component = "worker.reminder"

// Config controls the reminder sweep.
type Config struct {
	Enabled       bool          `yaml:"enabled" envconfig:"REMINDER_ENABLED"`
	CheckInterval time.Duration `yaml:"check_interval" envconfig:"REMINDER_CHECK_INTERVAL"`
	Period        time.Duration `yaml:"period" envconfig:"REMINDER_PERIOD"`
}

const (
	DefaultCheckInterval = 10 * time.Minute
	DefaultPeriod        = 24 * time.Hour
)

// Tracker is the subset of the challenge tracker the worker reads and updates.
type Tracker interface {
	ActiveEnrollments(ctx context.Context) ([]*challenge.Enrollment, error)
	Active(ctx context.Context, userID int64) (*challenge.Enrollment, error)
	MarkReminded(ctx context.Context, userID int64, at time.Time) error
	TotalDays() int
}

// Notifier delivers the reminder to the user.
type Notifier interface {
	Remind(ctx context.Context, userID int64, day, totalDays int) error
}

// Worker sweeps active enrollments on a fixed interval.
type Worker struct {
	tracker  Tracker
	notifier Notifier
	interval time.Duration
	period   time.Duration
	now      func() time.Time
}

// NewWorker fills unset durations with their defaults.
func NewWorker(tracker Tracker, notifier Notifier, cfg Config) *Worker {
	w := &Worker{
		tracker:  tracker,
		notifier: notifier,
		interval: cfg.CheckInterval,
		period:   cfg.Period,
		now:      time.Now,
	}
	if w.interval <= 0 {
		w.interval = DefaultCheckInterval
	}
	if w.period <= 0 {
		w.period = DefaultPeriod
	}
	return w
}

// Start runs sweeps until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info(ctx, component, "worker.started",
		slog.Duration("interval", w.interval),
		slog.Duration("period", w.period),
	)
	for {
		select {
		case <-ctx.Done():
			logger.Info(logger.Background(), component, "worker.stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep sends one reminder to every enrollment whose last reminder is at
// least a period old and returns how many went out.
func (w *Worker) Sweep(ctx context.Context) int {
	start := time.Now()
	list, err := w.tracker.ActiveEnrollments(ctx)
	if err != nil {
		logger.Error(ctx, component, "sweep.failed", slog.String("err", err.Error()))
		return 0
	}

	now := w.now()
	total := w.tracker.TotalDays()
	var sent, failed int
	for _, e := range list {
		if ctx.Err() != nil {
			break
		}
		if now.Sub(e.LastReminderAt) < w.period {
			continue
		}
		// The list may predate submissions made during this sweep.
		fresh, err := w.tracker.Active(ctx, e.UserID)
		if errors.Is(err, challenge.ErrNoActiveEnrollment) {
			continue
		}
		if err != nil {
			failed++
			logger.Warn(ctx, component, "reload.failed",
				slog.Int64("user_id", e.UserID),
				slog.String("err", err.Error()),
			)
			continue
		}
		if now.Sub(fresh.LastReminderAt) < w.period {
			continue
		}
		if err := w.notifier.Remind(ctx, e.UserID, fresh.CurrentDay, total); err != nil {
			failed++
			logger.Warn(ctx, component, "remind.failed",
				slog.Int64("user_id", e.UserID),
				slog.String("err", err.Error()),
			)
			continue
		}
		if err := w.tracker.MarkReminded(ctx, e.UserID, now); err != nil && !errors.Is(err, challenge.ErrNoActiveEnrollment) {
			logger.Warn(ctx, component, "mark.failed",
				slog.Int64("user_id", e.UserID),
				slog.String("err", err.Error()),
			)
		}
		sent++
	}

	if sent > 0 || failed > 0 {
		logger.Info(ctx, component, "sweep.completed",
			slog.Int("reminders", sent),
			slog.Int("failed", failed),
			slog.Int("active", len(list)),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return sent
}
