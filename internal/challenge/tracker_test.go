package challenge_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/creatorbot/internal/analytics"
	"github.com/m3rciful/creatorbot/internal/challenge"
	"github.com/m3rciful/creatorbot/internal/storage/memory"
)

type fixture struct {
	tracker     *challenge.Tracker
	enrollments *memory.EnrollmentStore
	history     *memory.HistoryStore
	now         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		enrollments: memory.NewEnrollmentStore(),
		history:     memory.NewHistoryStore(),
		now:         time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	f.tracker = challenge.NewTracker(f.enrollments, f.history, challenge.Config{},
		challenge.WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) start(t *testing.T, userID int64) {
	t.Helper()
	if _, err := f.tracker.Start(context.Background(), userID); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func (f *fixture) submit(t *testing.T, userID int64, views int64) *challenge.Update {
	t.Helper()
	upd, err := f.tracker.RecordSubmission(context.Background(), userID, "https://example.org/p", views)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return upd
}

func TestDayAdvancesUntilCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.start(t, 1)

	for day := 1; day <= 21; day++ {
		upd := f.submit(t, 1, int64(day*10))
		if upd.Day != day {
			t.Fatalf("update day = %d, want %d", upd.Day, day)
		}
		if day < 21 {
			e, err := f.tracker.Active(ctx, 1)
			if err != nil {
				t.Fatalf("active: %v", err)
			}
			if e.CurrentDay != day+1 || len(e.Posts) != day {
				t.Fatalf("after day %d: current_day=%d posts=%d", day, e.CurrentDay, len(e.Posts))
			}
			if upd.DaysRemaining != 21-day || upd.NextDay != day+1 || upd.Completed != nil {
				t.Fatalf("unexpected update %+v", upd)
			}
			continue
		}
		if upd.Completed == nil {
			t.Fatal("day 21 did not complete the challenge")
		}
	}

	if _, err := f.tracker.Active(ctx, 1); !errors.Is(err, challenge.ErrNoActiveEnrollment) {
		t.Fatalf("err = %v, want ErrNoActiveEnrollment", err)
	}
}

func TestChartDueEverySeventhDay(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1)

	for day := 1; day <= 21; day++ {
		upd := f.submit(t, 1, 100)
		want := day == 7 || day == 14 || day == 21
		if upd.ChartDue != want {
			t.Fatalf("day %d: chart due = %v, want %v", day, upd.ChartDue, want)
		}
	}
}

func TestGrowthRateReported(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1)

	if upd := f.submit(t, 1, 100); upd.GrowthRate != 0 {
		t.Fatalf("single point growth = %v", upd.GrowthRate)
	}
	if upd := f.submit(t, 1, 250); upd.GrowthRate != 150 {
		t.Fatalf("growth = %v, want 150", upd.GrowthRate)
	}
}

func TestFinalizeSummary(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1)
	for _, v := range []int64{100, 200, 300} {
		f.submit(t, 1, v)
	}

	s, err := f.tracker.Finalize(context.Background(), 1)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if s.TotalViews != 600 || s.AverageViews != 200.0 || s.Posts != 3 {
		t.Fatalf("summary = %+v", s)
	}
	if s.GrowthRate != 200 || s.Tier != challenge.TierOutstanding {
		t.Fatalf("growth %v tier %s", s.GrowthRate, s.Tier)
	}
}

func TestFinalizeWithoutPostsIsRejected(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1)

	if _, err := f.tracker.Finalize(context.Background(), 1); !errors.Is(err, challenge.ErrNoPosts) {
		t.Fatalf("err = %v, want ErrNoPosts", err)
	}
	if _, err := f.tracker.Active(context.Background(), 1); err != nil {
		t.Fatalf("enrollment should survive a rejected finalize: %v", err)
	}
}

func TestSubmissionWithoutEnrollment(t *testing.T) {
	f := newFixture(t)
	_, err := f.tracker.RecordSubmission(context.Background(), 5, "l", 1)
	if !errors.Is(err, challenge.ErrNoActiveEnrollment) {
		t.Fatalf("err = %v, want ErrNoActiveEnrollment", err)
	}
	if pts, _ := f.history.Points(context.Background(), 5); len(pts) != 0 {
		t.Fatalf("history written for unenrolled user: %v", pts)
	}
}

func TestNegativeViewsRejected(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1)
	if _, err := f.tracker.RecordSubmission(context.Background(), 1, "l", -1); !errors.Is(err, challenge.ErrNegativeViews) {
		t.Fatalf("err = %v, want ErrNegativeViews", err)
	}
	e, _ := f.tracker.Active(context.Background(), 1)
	if e.CurrentDay != 1 {
		t.Fatalf("current day = %d, want 1", e.CurrentDay)
	}
}

func TestStartWhileEnrolledKeepsProgress(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1)
	f.submit(t, 1, 10)

	e, err := f.tracker.Start(context.Background(), 1)
	if !errors.Is(err, challenge.ErrAlreadyEnrolled) {
		t.Fatalf("err = %v, want ErrAlreadyEnrolled", err)
	}
	if e.CurrentDay != 2 {
		t.Fatalf("current day = %d, want 2", e.CurrentDay)
	}
}

func TestReenrollKeepsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.start(t, 1)
	for day := 1; day <= 21; day++ {
		f.submit(t, 1, 100)
	}

	e, err := f.tracker.Start(ctx, 1)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if e.CurrentDay != 1 || len(e.Posts) != 0 {
		t.Fatalf("fresh enrollment = %+v", e)
	}
	upd := f.submit(t, 1, 300)
	if len(upd.History) != 22 {
		t.Fatalf("history length = %d, want 22", len(upd.History))
	}
	if upd.GrowthRate != 200 {
		t.Fatalf("growth across challenges = %v, want 200", upd.GrowthRate)
	}
}

func TestMarkReminded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.start(t, 1)

	at := f.now.Add(24 * time.Hour)
	if err := f.tracker.MarkReminded(ctx, 1, at); err != nil {
		t.Fatalf("mark: %v", err)
	}
	e, _ := f.tracker.Active(ctx, 1)
	if !e.LastReminderAt.Equal(at) {
		t.Fatalf("last reminder = %v, want %v", e.LastReminderAt, at)
	}
	if err := f.tracker.MarkReminded(ctx, 2, at); !errors.Is(err, challenge.ErrNoActiveEnrollment) {
		t.Fatalf("err = %v, want ErrNoActiveEnrollment", err)
	}
}

func TestProgressSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.start(t, 1)
	f.submit(t, 1, 100)
	f.submit(t, 1, 150)

	p, err := f.tracker.Progress(ctx, 1)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !p.Active || p.CurrentDay != 3 || len(p.Posts) != 2 || p.GrowthRate != 50 || p.TotalDays != 21 {
		t.Fatalf("progress = %+v", p)
	}

	idle, err := f.tracker.Progress(ctx, 2)
	if err != nil || idle.Active {
		t.Fatalf("idle progress = %+v, %v", idle, err)
	}
}

func TestConcurrentSubmissionsDoNotLoseDays(t *testing.T) {
	f := newFixture(t)
	f.start(t, 1)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.tracker.RecordSubmission(context.Background(), 1, "l", 1); err != nil {
				t.Errorf("submit: %v", err)
			}
		}()
	}
	wg.Wait()

	e, err := f.tracker.Active(context.Background(), 1)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if e.CurrentDay != 11 || len(e.Posts) != 10 {
		t.Fatalf("current_day=%d posts=%d, want 11 and 10", e.CurrentDay, len(e.Posts))
	}
	seen := map[int]bool{}
	for _, p := range e.Posts {
		if seen[p.Day] {
			t.Fatalf("day %d recorded twice", p.Day)
		}
		seen[p.Day] = true
	}
}

// flakyEnrollments fails the next failPuts writes.
type flakyEnrollments struct {
	*memory.EnrollmentStore
	failPuts int
}

func (s *flakyEnrollments) Put(ctx context.Context, e *challenge.Enrollment) error {
	if s.failPuts > 0 {
		s.failPuts--
		return errors.New("enrollments unavailable")
	}
	return s.EnrollmentStore.Put(ctx, e)
}

// flakyHistory fails the next failAppends writes.
type flakyHistory struct {
	*memory.HistoryStore
	failAppends int
}

func (s *flakyHistory) Append(ctx context.Context, userID int64, p analytics.Point) error {
	if s.failAppends > 0 {
		s.failAppends--
		return errors.New("history unavailable")
	}
	return s.HistoryStore.Append(ctx, userID, p)
}

func TestRetryAfterFailedEnrollmentWriteRecordsDayOnce(t *testing.T) {
	ctx := context.Background()
	enrollments := &flakyEnrollments{EnrollmentStore: memory.NewEnrollmentStore()}
	history := memory.NewHistoryStore()
	tracker := challenge.NewTracker(enrollments, history, challenge.Config{})
	if _, err := tracker.Start(ctx, 1); err != nil {
		t.Fatalf("start: %v", err)
	}

	enrollments.failPuts = 1
	if _, err := tracker.RecordSubmission(ctx, 1, "l", 100); err == nil {
		t.Fatal("expected store error")
	}
	if points, _ := history.Points(ctx, 1); len(points) != 0 {
		t.Fatalf("history after failed write = %v, want empty", points)
	}

	upd, err := tracker.RecordSubmission(ctx, 1, "l", 100)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	e, err := tracker.Active(ctx, 1)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	points, _ := history.Points(ctx, 1)
	if upd.Day != 1 || e.CurrentDay != 2 || len(e.Posts) != 1 || len(points) != 1 {
		t.Fatalf("current_day=%d posts=%d history=%v", e.CurrentDay, len(e.Posts), points)
	}
}

func TestFailedHistoryAppendRestoresEnrollment(t *testing.T) {
	ctx := context.Background()
	enrollments := memory.NewEnrollmentStore()
	history := &flakyHistory{HistoryStore: memory.NewHistoryStore()}
	tracker := challenge.NewTracker(enrollments, history, challenge.Config{TotalDays: 2})
	if _, err := tracker.Start(ctx, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := tracker.RecordSubmission(ctx, 1, "l", 100); err != nil {
		t.Fatalf("day 1: %v", err)
	}

	history.failAppends = 1
	if _, err := tracker.RecordSubmission(ctx, 1, "l", 300); err == nil {
		t.Fatal("expected history error")
	}
	e, err := tracker.Active(ctx, 1)
	if err != nil {
		t.Fatalf("final day rollback lost the enrollment: %v", err)
	}
	if e.CurrentDay != 2 || len(e.Posts) != 1 {
		t.Fatalf("current_day=%d posts=%d, want 2 and 1", e.CurrentDay, len(e.Posts))
	}

	upd, err := tracker.RecordSubmission(ctx, 1, "l", 300)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if upd.Completed == nil || upd.Completed.TotalViews != 400 || upd.Completed.GrowthRate != 200 {
		t.Fatalf("completion = %+v", upd.Completed)
	}
	if points, _ := history.Points(ctx, 1); len(points) != 2 {
		t.Fatalf("history = %v, want 2 points", points)
	}
}

func TestTierFor(t *testing.T) {
	cases := map[float64]challenge.Tier{
		150: challenge.TierOutstanding,
		100: challenge.TierGreat,
		51:  challenge.TierGreat,
		50:  challenge.TierNeedsImprovement,
		-20: challenge.TierNeedsImprovement,
	}
	for rate, want := range cases {
		if got := challenge.TierFor(rate); got != want {
			t.Fatalf("TierFor(%v) = %s, want %s", rate, got, want)
		}
	}
}
