// Package memory provides process-local stores guarded by RW mutexes. State
// is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m3rciful/creatorbot/internal/analytics"
	"github.com/m3rciful/creatorbot/internal/challenge"
	"github.com/m3rciful/creatorbot/internal/conversation"
	"github.com/m3rciful/creatorbot/internal/storage"
)

// UserStore keeps conversation records in a map.
type UserStore struct {
	mu    sync.RWMutex
	users map[int64]*conversation.User
}

// NewUserStore constructs an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[int64]*conversation.User)}
}

// Get returns a copy of the user record.
func (s *UserStore) Get(_ context.Context, userID int64) (*conversation.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u.Clone(), nil
}

// Put stores a copy of u.
func (s *UserStore) Put(_ context.Context, u *conversation.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.UserID] = u.Clone()
	return nil
}

// EnrollmentStore keeps active enrollments in a map.
type EnrollmentStore struct {
	mu          sync.RWMutex
	enrollments map[int64]*challenge.Enrollment
}

// NewEnrollmentStore constructs an empty EnrollmentStore.
func NewEnrollmentStore() *EnrollmentStore {
	return &EnrollmentStore{enrollments: make(map[int64]*challenge.Enrollment)}
}

func (s *EnrollmentStore) Get(_ context.Context, userID int64) (*challenge.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.enrollments[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *EnrollmentStore) Put(_ context.Context, e *challenge.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enrollments[e.UserID] = e.Clone()
	return nil
}

// Delete removes the enrollment; deleting a missing one is not an error.
func (s *EnrollmentStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.enrollments, userID)
	return nil
}

// List returns copies of all enrollments ordered by user id.
func (s *EnrollmentStore) List(_ context.Context) ([]*challenge.Enrollment, error) {
	s.mu.RLock()
	out := make([]*challenge.Enrollment, 0, len(s.enrollments))
	for _, e := range s.enrollments {
		out = append(out, e.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// HistoryStore keeps per-user analytics series in append order.
type HistoryStore struct {
	mu     sync.RWMutex
	points map[int64][]analytics.Point
}

// NewHistoryStore constructs an empty HistoryStore.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{points: make(map[int64][]analytics.Point)}
}

func (s *HistoryStore) Append(_ context.Context, userID int64, p analytics.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.points[userID] = append(s.points[userID], p)
	return nil
}

// Points returns a copy of the series; unknown users get an empty slice.
func (s *HistoryStore) Points(_ context.Context, userID int64) ([]analytics.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return analytics.Clone(s.points[userID]), nil
}

var (
	_ conversation.UserStore    = (*UserStore)(nil)
	_ challenge.EnrollmentStore = (*EnrollmentStore)(nil)
	_ challenge.HistoryStore    = (*HistoryStore)(nil)
)
