// Package postgres implements the stores on top of sqlx and lib/pq. The
// schema lives in the migrations directory and is applied by core/database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/creatorbot/internal/analytics"
	"github.com/m3rciful/creatorbot/internal/challenge"
	"github.com/m3rciful/creatorbot/internal/conversation"
	"github.com/m3rciful/creatorbot/internal/storage"
)

// UserStore persists conversation records in the creators table.
type UserStore struct {
	db *sqlx.DB
}

// NewUserStore wraps db.
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

type creatorRow struct {
	UserID       int64          `db:"user_id"`
	Stage        string         `db:"stage"`
	SocialHandle sql.NullString `db:"social_handle"`
	ViralLink    sql.NullString `db:"viral_link"`
	ViralViews   sql.NullInt64  `db:"viral_views"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r creatorRow) user() *conversation.User {
	u := &conversation.User{
		UserID:       r.UserID,
		Stage:        conversation.Stage(r.Stage),
		SocialHandle: r.SocialHandle.String,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.ViralLink.Valid {
		u.ViralContent = &conversation.ViralContent{Link: r.ViralLink.String, Views: r.ViralViews.Int64}
	}
	return u
}

func (s *UserStore) Get(ctx context.Context, userID int64) (*conversation.User, error) {
	var row creatorRow
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, stage, social_handle, viral_link, viral_views, created_at, updated_at
		FROM creators WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select creator: %w", err)
	}
	return row.user(), nil
}

func (s *UserStore) Put(ctx context.Context, u *conversation.User) error {
	row := creatorRow{
		UserID:       u.UserID,
		Stage:        string(u.Stage),
		SocialHandle: sql.NullString{String: u.SocialHandle, Valid: u.SocialHandle != ""},
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.ViralContent != nil {
		row.ViralLink = sql.NullString{String: u.ViralContent.Link, Valid: true}
		row.ViralViews = sql.NullInt64{Int64: u.ViralContent.Views, Valid: true}
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO creators (user_id, stage, social_handle, viral_link, viral_views, created_at, updated_at)
		VALUES (:user_id, :stage, :social_handle, :viral_link, :viral_views, :created_at, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			stage = EXCLUDED.stage,
			social_handle = EXCLUDED.social_handle,
			viral_link = EXCLUDED.viral_link,
			viral_views = EXCLUDED.viral_views,
			updated_at = EXCLUDED.updated_at`, row)
	if err != nil {
		return fmt.Errorf("upsert creator: %w", err)
	}
	return nil
}

// EnrollmentStore persists enrollments and their posts.
type EnrollmentStore struct {
	db *sqlx.DB
}

// NewEnrollmentStore wraps db.
func NewEnrollmentStore(db *sqlx.DB) *EnrollmentStore {
	return &EnrollmentStore{db: db}
}

type postRow struct {
	UserID int64 `db:"user_id"`
	challenge.Post
}

func (s *EnrollmentStore) Get(ctx context.Context, userID int64) (*challenge.Enrollment, error) {
	var e challenge.Enrollment
	err := s.db.GetContext(ctx, &e, `
		SELECT user_id, start_time, current_day, last_reminder_time
		FROM enrollments WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select enrollment: %w", err)
	}
	if err := s.db.SelectContext(ctx, &e.Posts, `
		SELECT id, day, link, views, submitted_at
		FROM enrollment_posts WHERE user_id = $1
		ORDER BY submitted_at, id`, userID); err != nil {
		return nil, fmt.Errorf("select posts: %w", err)
	}
	return &e, nil
}

// Put upserts the enrollment row and inserts posts it has not seen yet.
// Posts are append-only, so existing ids are left alone.
func (s *EnrollmentStore) Put(ctx context.Context, e *challenge.Enrollment) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, `
		INSERT INTO enrollments (user_id, start_time, current_day, last_reminder_time)
		VALUES (:user_id, :start_time, :current_day, :last_reminder_time)
		ON CONFLICT (user_id) DO UPDATE SET
			current_day = EXCLUDED.current_day,
			last_reminder_time = EXCLUDED.last_reminder_time`, e); err != nil {
		return fmt.Errorf("upsert enrollment: %w", err)
	}

	for _, p := range e.Posts {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO enrollment_posts (id, user_id, day, link, views, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, e.UserID, p.Day, p.Link, p.Views, p.SubmittedAt); err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// Delete removes the enrollment; its posts go with it via ON DELETE CASCADE.
func (s *EnrollmentStore) Delete(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM enrollments WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

func (s *EnrollmentStore) List(ctx context.Context) ([]*challenge.Enrollment, error) {
	var list []*challenge.Enrollment
	if err := s.db.SelectContext(ctx, &list, `
		SELECT user_id, start_time, current_day, last_reminder_time
		FROM enrollments ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("select enrollments: %w", err)
	}
	if len(list) == 0 {
		return list, nil
	}

	var posts []postRow
	if err := s.db.SelectContext(ctx, &posts, `
		SELECT user_id, id, day, link, views, submitted_at
		FROM enrollment_posts ORDER BY user_id, submitted_at, id`); err != nil {
		return nil, fmt.Errorf("select posts: %w", err)
	}
	byUser := make(map[int64]*challenge.Enrollment, len(list))
	for _, e := range list {
		byUser[e.UserID] = e
	}
	for _, p := range posts {
		if e, ok := byUser[p.UserID]; ok {
			e.Posts = append(e.Posts, p.Post)
		}
	}
	return list, nil
}

// HistoryStore persists the analytics series in analytics_points.
type HistoryStore struct {
	db *sqlx.DB
}

// NewHistoryStore wraps db.
func NewHistoryStore(db *sqlx.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Append(ctx context.Context, userID int64, p analytics.Point) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO analytics_points (user_id, day, views) VALUES ($1, $2, $3)`,
		userID, p.Day, p.Views); err != nil {
		return fmt.Errorf("insert analytics point: %w", err)
	}
	return nil
}

func (s *HistoryStore) Points(ctx context.Context, userID int64) ([]analytics.Point, error) {
	var points []analytics.Point
	if err := s.db.SelectContext(ctx, &points,
		`SELECT day, views FROM analytics_points WHERE user_id = $1 ORDER BY seq`, userID); err != nil {
		return nil, fmt.Errorf("select analytics points: %w", err)
	}
	return points, nil
}

var (
	_ conversation.UserStore    = (*UserStore)(nil)
	_ challenge.EnrollmentStore = (*EnrollmentStore)(nil)
	_ challenge.HistoryStore    = (*HistoryStore)(nil)
)
