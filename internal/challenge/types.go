// Package challenge tracks enrollments in the daily posting challenge and
// derives growth statistics from submitted view counts.
package challenge

import (
	"context"
	"errors"
	"time"

	"github.com/m3rciful/creatorbot/internal/analytics"
)

var (
	// ErrNoActiveEnrollment is returned for operations on a user who has not
	// started the challenge or already finished it.
	ErrNoActiveEnrollment = errors.New("challenge: no active enrollment")
	// ErrAlreadyEnrolled is returned by Start when an enrollment is running.
	ErrAlreadyEnrolled = errors.New("challenge: already enrolled")
	// ErrNoPosts guards finalization of an enrollment without submissions.
	ErrNoPosts = errors.New("challenge: enrollment has no posts")
	// ErrNegativeViews rejects submissions with views below zero.
	ErrNegativeViews = errors.New("challenge: views must not be negative")
)

// Post is one daily submission.
type Post struct {
	ID          string    `json:"id" db:"id"`
	Day         int       `json:"day" db:"day"`
	Link        string    `json:"link" db:"link"`
	Views       int64     `json:"views" db:"views"`
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
}

// Enrollment is a user's running challenge. CurrentDay equals len(Posts)+1
// until the enrollment is finalized.
type Enrollment struct {
	UserID         int64     `json:"user_id" db:"user_id"`
	StartTime      time.Time `json:"start_time" db:"start_time"`
	CurrentDay     int       `json:"current_day" db:"current_day"`
	Posts          []Post    `json:"posts"`
	LastReminderAt time.Time `json:"last_reminder_time" db:"last_reminder_time"`
}

// Clone returns a deep copy so stores never share post slices with callers.
func (e *Enrollment) Clone() *Enrollment {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Posts != nil {
		cp.Posts = append([]Post(nil), e.Posts...)
	}
	return &cp
}

// Points projects the enrollment's posts onto the analytics series.
func (e *Enrollment) Points() []analytics.Point {
	out := make([]analytics.Point, 0, len(e.Posts))
	for _, p := range e.Posts {
		out = append(out, analytics.Point{Day: p.Day, Views: p.Views})
	}
	return out
}

// EnrollmentStore persists active enrollments. Get returns storage.ErrNotFound
// when the user has none.
type EnrollmentStore interface {
	Get(ctx context.Context, userID int64) (*Enrollment, error)
	Put(ctx context.Context, e *Enrollment) error
	Delete(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]*Enrollment, error)
}

// HistoryStore keeps the analytics series. It outlives enrollments.
type HistoryStore interface {
	Append(ctx context.Context, userID int64, p analytics.Point) error
	Points(ctx context.Context, userID int64) ([]analytics.Point, error)
}

// Tier grades a finished challenge by its growth rate.
type Tier string

const (
	TierOutstanding      Tier = "outstanding"
	TierGreat            Tier = "great"
	TierNeedsImprovement Tier = "needs_improvement"
)

// TierFor maps a growth percentage onto a completion tier.
func TierFor(growthRate float64) Tier {
	switch {
	case growthRate > 100:
		return TierOutstanding
	case growthRate > 50:
		return TierGreat
	default:
		return TierNeedsImprovement
	}
}

// Update describes the outcome of one accepted submission.
type Update struct {
	Day           int
	GrowthRate    float64
	TotalPosts    int
	DaysRemaining int
	// NextDay is the day the user is now on; zero once completed.
	NextDay  int
	ChartDue bool
	History  []analytics.Point
	// Completed is set when the submission closed the challenge.
	Completed *Summary
}

// Summary holds the final statistics of a finalized enrollment.
type Summary struct {
	TotalViews   int64             `json:"total_views"`
	AverageViews float64           `json:"average_views"`
	GrowthRate   float64           `json:"growth_rate"`
	Tier         Tier              `json:"tier"`
	Posts        int               `json:"posts"`
	History      []analytics.Point `json:"history"`
}

// Progress is a read-only snapshot used by the admin API.
type Progress struct {
	UserID     int64             `json:"user_id"`
	Active     bool              `json:"active"`
	CurrentDay int               `json:"current_day,omitempty"`
	TotalDays  int               `json:"total_days"`
	Posts      []Post            `json:"posts,omitempty"`
	GrowthRate float64           `json:"growth_rate"`
	History    []analytics.Point `json:"history"`
}
