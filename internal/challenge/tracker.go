package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/m3rciful/creatorbot/core/logger"
	"github.com/m3rciful/creatorbot/internal/analytics"
	"github.com/m3rciful/creatorbot/internal/storage"
	"github.com/m3rciful/creatorbot/internal/userlock"
)

const component = "service.challenge"

const (
	DefaultTotalDays  = 21
	DefaultChartEvery = 7
)

// Config sets the challenge length and chart cadence.
type Config struct {
	TotalDays  int `yaml:"total_days" envconfig:"CHALLENGE_TOTAL_DAYS"`
	ChartEvery int `yaml:"chart_every" envconfig:"CHALLENGE_CHART_EVERY"`
}

func (c Config) withDefaults() Config {
	if c.TotalDays <= 0 {
		c.TotalDays = DefaultTotalDays
	}
	if c.ChartEvery <= 0 {
		c.ChartEvery = DefaultChartEvery
	}
	return c
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker owns the enrollment lifecycle. All mutations for one user run under
// that user's lock so day bookkeeping cannot race.
type Tracker struct {
	enrollments EnrollmentStore
	history     HistoryStore
	locks       *userlock.Locker
	cfg         Config
	now         func() time.Time
}

// NewTracker wires a Tracker over the given stores.
func NewTracker(enrollments EnrollmentStore, history HistoryStore, cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		enrollments: enrollments,
		history:     history,
		locks:       userlock.New(),
		cfg:         cfg.withDefaults(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TotalDays reports the configured challenge length.
func (t *Tracker) TotalDays() int { return t.cfg.TotalDays }

// Start creates a fresh enrollment on day 1. If one is already running it is
// returned unchanged together with ErrAlreadyEnrolled.
func (t *Tracker) Start(ctx context.Context, userID int64) (*Enrollment, error) {
	unlock := t.locks.Lock(userID)
	defer unlock()

	existing, err := t.load(ctx, userID)
	switch {
	case err == nil:
		return existing, ErrAlreadyEnrolled
	case !errors.Is(err, ErrNoActiveEnrollment):
		return nil, err
	}

	now := t.now()
	e := &Enrollment{UserID: userID, StartTime: now, CurrentDay: 1, LastReminderAt: now}
	if err := t.enrollments.Put(ctx, e); err != nil {
		return nil, fmt.Errorf("store enrollment: %w", err)
	}
	logger.Info(ctx, component, "challenge.started", slog.Int("day", 1))
	return e.Clone(), nil
}

// RecordSubmission accepts the submission for the user's current day. On the
// last day the enrollment is finalized and removed; otherwise the day
// counter advances by one. The enrollment is written before the history
// point, and a failed history append restores the previous enrollment, so a
// retried submission never records the same day twice.
func (t *Tracker) RecordSubmission(ctx context.Context, userID int64, link string, views int64) (*Update, error) {
	if views < 0 {
		return nil, ErrNegativeViews
	}
	unlock := t.locks.Lock(userID)
	defer unlock()

	e, err := t.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	prior, err := t.history.Points(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	orig := e.Clone()
	day := e.CurrentDay
	point := analytics.Point{Day: day, Views: views}
	points := append(analytics.Clone(prior), point)
	e.Posts = append(e.Posts, Post{
		ID:          ulid.Make().String(),
		Day:         day,
		Link:        link,
		Views:       views,
		SubmittedAt: t.now(),
	})

	upd := &Update{
		Day:           day,
		GrowthRate:    analytics.GrowthRate(points),
		TotalPosts:    len(e.Posts),
		DaysRemaining: max(t.cfg.TotalDays-day, 0),
		ChartDue:      day%t.cfg.ChartEvery == 0,
		History:       points,
	}

	if day >= t.cfg.TotalDays {
		summary, err := t.finalize(ctx, e, points)
		if err != nil {
			return nil, err
		}
		if err := t.appendHistory(ctx, orig, point); err != nil {
			return nil, err
		}
		upd.Completed = summary
		logger.Info(ctx, component, "submission.recorded",
			slog.Int("day", day),
			slog.Int64("views", views),
			slog.Float64("growth_rate", upd.GrowthRate),
			slog.String("status", "completed"),
		)
		return upd, nil
	}

	e.CurrentDay = day + 1
	if err := t.enrollments.Put(ctx, e); err != nil {
		return nil, fmt.Errorf("store enrollment: %w", err)
	}
	if err := t.appendHistory(ctx, orig, point); err != nil {
		return nil, err
	}
	upd.NextDay = e.CurrentDay
	logger.Info(ctx, component, "submission.recorded",
		slog.Int("day", day),
		slog.Int64("views", views),
		slog.Float64("growth_rate", upd.GrowthRate),
		slog.Int("days_remaining", upd.DaysRemaining),
		slog.Bool("chart", upd.ChartDue),
	)
	return upd, nil
}

// appendHistory records p and, when that fails, puts orig back so the
// submission can be retried from the same day.
func (t *Tracker) appendHistory(ctx context.Context, orig *Enrollment, p analytics.Point) error {
	err := t.history.Append(ctx, orig.UserID, p)
	if err == nil {
		return nil
	}
	err = fmt.Errorf("append history: %w", err)
	if rbErr := t.enrollments.Put(ctx, orig); rbErr != nil {
		logger.Error(ctx, component, "submission.rollback_failed",
			slog.Int("day", orig.CurrentDay),
			slog.String("err", rbErr.Error()),
		)
		return errors.Join(err, fmt.Errorf("restore enrollment: %w", rbErr))
	}
	return err
}

// Finalize closes the user's enrollment early and returns its summary.
func (t *Tracker) Finalize(ctx context.Context, userID int64) (*Summary, error) {
	unlock := t.locks.Lock(userID)
	defer unlock()

	e, err := t.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	points, err := t.history.Points(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return t.finalize(ctx, e, points)
}

// finalize expects the caller to hold the user's lock.
func (t *Tracker) finalize(ctx context.Context, e *Enrollment, points []analytics.Point) (*Summary, error) {
	if len(e.Posts) == 0 {
		return nil, ErrNoPosts
	}
	total := analytics.Totals(e.Points())
	growth := analytics.GrowthRate(points)
	s := &Summary{
		TotalViews:   total,
		AverageViews: float64(total) / float64(len(e.Posts)),
		GrowthRate:   growth,
		Tier:         TierFor(growth),
		Posts:        len(e.Posts),
		History:      points,
	}
	if err := t.enrollments.Delete(ctx, e.UserID); err != nil {
		return nil, fmt.Errorf("delete enrollment: %w", err)
	}
	logger.Info(ctx, component, "challenge.finalized",
		slog.Int("posts", s.Posts),
		slog.Int64("total_views", s.TotalViews),
		slog.Float64("growth_rate", s.GrowthRate),
		slog.String("tier", string(s.Tier)),
	)
	return s, nil
}

// Active returns the user's running enrollment.
func (t *Tracker) Active(ctx context.Context, userID int64) (*Enrollment, error) {
	return t.load(ctx, userID)
}

// ActiveEnrollments lists every running enrollment.
func (t *Tracker) ActiveEnrollments(ctx context.Context) ([]*Enrollment, error) {
	list, err := t.enrollments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return list, nil
}

// MarkReminded records that a reminder went out at the given time. A user
// who finished in the meantime yields ErrNoActiveEnrollment.
func (t *Tracker) MarkReminded(ctx context.Context, userID int64, at time.Time) error {
	unlock := t.locks.Lock(userID)
	defer unlock()

	e, err := t.load(ctx, userID)
	if err != nil {
		return err
	}
	e.LastReminderAt = at
	if err := t.enrollments.Put(ctx, e); err != nil {
		return fmt.Errorf("store enrollment: %w", err)
	}
	return nil
}

// History returns the user's analytics series, which may span several
// challenges.
func (t *Tracker) History(ctx context.Context, userID int64) ([]analytics.Point, error) {
	points, err := t.history.Points(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return points, nil
}

// Progress assembles a snapshot of the user's state.
func (t *Tracker) Progress(ctx context.Context, userID int64) (*Progress, error) {
	points, err := t.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &Progress{
		UserID:     userID,
		TotalDays:  t.cfg.TotalDays,
		GrowthRate: analytics.GrowthRate(points),
		History:    points,
	}
	e, err := t.load(ctx, userID)
	switch {
	case err == nil:
		p.Active = true
		p.CurrentDay = e.CurrentDay
		p.Posts = e.Posts
	case !errors.Is(err, ErrNoActiveEnrollment):
		return nil, err
	}
	return p, nil
}

func (t *Tracker) load(ctx context.Context, userID int64) (*Enrollment, error) {
	e, err := t.enrollments.Get(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoActiveEnrollment
	}
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	return e, nil
}
