package conversation

import (
	"context"
	"time"
)

// Stage is a user's position in the onboarding funnel.
type Stage string

const (
	StageInitial              Stage = "initial"
	StageAwaitingHandle       Stage = "awaiting_handle"
	StageAwaitingViralContent Stage = "awaiting_viral_content"
	StageReadyForChallenge    Stage = "ready_for_challenge"
	StageInChallenge          Stage = "in_challenge"
)

// ViralContent is the best-performing post a creator shares during onboarding.
type ViralContent struct {
	Link  string `json:"link"`
	Views int64  `json:"views"`
}

// User is the conversation record, created on first contact.
type User struct {
	UserID       int64         `json:"user_id"`
	Stage        Stage         `json:"stage"`
	SocialHandle string        `json:"social_handle,omitempty"`
	ViralContent *ViralContent `json:"viral_content,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Clone returns a copy that does not alias the viral content record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.ViralContent != nil {
		vc := *u.ViralContent
		cp.ViralContent = &vc
	}
	return &cp
}

// UserStore persists conversation records. Get returns storage.ErrNotFound
// for unknown users.
type UserStore interface {
	Get(ctx context.Context, userID int64) (*User, error)
	Put(ctx context.Context, u *User) error
}
