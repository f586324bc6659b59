// Package conversation routes inbound events through the onboarding funnel
// and into the challenge tracker. It speaks in logical messages and menus;
// transport adapters turn those into chat markup.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/creatorbot/core/logger"
	"github.com/m3rciful/creatorbot/internal/analytics"
	"github.com/m3rciful/creatorbot/internal/challenge"
	"github.com/m3rciful/creatorbot/internal/storage"
	"github.com/m3rciful/creatorbot/internal/userlock"
)

const component = "service.conversation"

// Action identifies a menu button.
type Action string

const (
	ActionShareHandle    Action = "share_handle"
	ActionCreatorGuide   Action = "creator_guide"
	ActionChallengeInfo  Action = "challenge_info"
	ActionStartChallenge Action = "start_challenge"
)

// Actions lists every button action the machine understands.
func Actions() []Action {
	return []Action{ActionShareHandle, ActionCreatorGuide, ActionChallengeInfo, ActionStartChallenge}
}

// Event is one inbound interaction: either free text or a button action.
type Event struct {
	UserID int64
	Text   string
	Action Action
	At     time.Time
}

// Button is a logical menu entry.
type Button struct {
	Label  string
	Action Action
}

// ChartRequest asks the transport to render and send a growth chart.
type ChartRequest struct {
	Points  []analytics.Point
	Caption string
}

// Message is one outbound reply. Exactly one of Text or Chart is set.
type Message struct {
	Text  string
	Menu  []Button
	Chart *ChartRequest
}

// Challenges is the part of the challenge tracker the machine drives.
type Challenges interface {
	Start(ctx context.Context, userID int64) (*challenge.Enrollment, error)
	RecordSubmission(ctx context.Context, userID int64, link string, views int64) (*challenge.Update, error)
	Active(ctx context.Context, userID int64) (*challenge.Enrollment, error)
	TotalDays() int
}

// Machine is the per-user conversation state machine. Events for the same
// user are handled one at a time.
type Machine struct {
	users   UserStore
	tracker Challenges
	locks   *userlock.Locker
	now     func() time.Time
}

// NewMachine wires the state machine over its stores.
func NewMachine(users UserStore, tracker Challenges) *Machine {
	return &Machine{
		users:   users,
		tracker: tracker,
		locks:   userlock.New(),
		now:     time.Now,
	}
}

// Start handles /start: the user's record is reset to the initial stage and
// the welcome menu is shown. A running enrollment is left untouched.
func (m *Machine) Start(ctx context.Context, userID int64) ([]Message, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	u, err := m.load(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	fresh := m.newUser(userID)
	if u != nil {
		fresh.CreatedAt = u.CreatedAt
	}
	if err := m.save(ctx, fresh); err != nil {
		return nil, err
	}
	logger.Info(ctx, component, "user.started", slog.String("stage", string(fresh.Stage)))
	return []Message{m.welcome()}, nil
}

// Handle advances the user's conversation by one event.
func (m *Machine) Handle(ctx context.Context, ev Event) ([]Message, error) {
	unlock := m.locks.Lock(ev.UserID)
	defer unlock()

	u, err := m.load(ctx, ev.UserID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		u = m.newUser(ev.UserID)
		if err := m.save(ctx, u); err != nil {
			return nil, err
		}
		if ev.Action == "" {
			logger.Info(ctx, component, "user.created", slog.String("stage", string(u.Stage)))
			return []Message{m.welcome()}, nil
		}
	case err != nil:
		return nil, err
	}

	if ev.Action != "" {
		return m.handleAction(ctx, u, ev.Action)
	}
	return m.handleText(ctx, u, ev.Text)
}

// Stage returns the user's current stage, or StageInitial for unknown users.
func (m *Machine) Stage(ctx context.Context, userID int64) (Stage, error) {
	u, err := m.load(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return StageInitial, nil
	}
	if err != nil {
		return "", err
	}
	return u.Stage, nil
}

// InProgress reports whether the user's next text is consumed by an open
// step rather than routed as a command.
func (m *Machine) InProgress(ctx context.Context, userID int64) bool {
	stage, err := m.Stage(ctx, userID)
	if err != nil {
		return false
	}
	switch stage {
	case StageAwaitingHandle, StageAwaitingViralContent, StageInChallenge:
		return true
	default:
		return false
	}
}

func (m *Machine) handleAction(ctx context.Context, u *User, action Action) ([]Message, error) {
	total := m.tracker.TotalDays()
	switch action {
	case ActionShareHandle:
		if err := m.transition(ctx, u, StageAwaitingHandle); err != nil {
			return nil, err
		}
		return []Message{{Text: askHandleText}}, nil

	case ActionCreatorGuide:
		return []Message{{
			Text: fmt.Sprintf(guideText, total),
			Menu: []Button{{Label: fmt.Sprintf(labelChallengeInfo, total), Action: ActionChallengeInfo}},
		}}, nil

	case ActionChallengeInfo:
		return []Message{{
			Text: fmt.Sprintf(infoText, total, total),
			Menu: []Button{{Label: labelStartNow, Action: ActionStartChallenge}},
		}}, nil

	case ActionStartChallenge:
		return m.startChallenge(ctx, u)

	default:
		logger.Warn(ctx, component, "action.unknown", slog.String("action", string(action)))
		return nil, fmt.Errorf("unknown action %q", action)
	}
}

func (m *Machine) startChallenge(ctx context.Context, u *User) ([]Message, error) {
	total := m.tracker.TotalDays()
	e, err := m.tracker.Start(ctx, u.UserID)
	if errors.Is(err, challenge.ErrAlreadyEnrolled) {
		if err := m.transition(ctx, u, StageInChallenge); err != nil {
			return nil, err
		}
		return []Message{{Text: fmt.Sprintf(alreadyEnrolledText, e.CurrentDay, total)}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("start challenge: %w", err)
	}
	if err := m.transition(ctx, u, StageInChallenge); err != nil {
		return nil, err
	}
	return []Message{
		{Text: fmt.Sprintf(startedText, total)},
		{Text: fmt.Sprintf(firstDayText, e.CurrentDay, total)},
	}, nil
}

func (m *Machine) handleText(ctx context.Context, u *User, text string) ([]Message, error) {
	switch u.Stage {
	case StageAwaitingHandle:
		handle := strings.TrimSpace(text)
		if handle == "" {
			return []Message{{Text: handleEmptyText}}, nil
		}
		u.SocialHandle = handle
		if err := m.transition(ctx, u, StageAwaitingViralContent); err != nil {
			return nil, err
		}
		return []Message{{Text: askViralText}}, nil

	case StageAwaitingViralContent:
		sub, err := ParseSubmission(text)
		if err != nil {
			return m.malformed(ctx, u, err), nil
		}
		u.ViralContent = &ViralContent{Link: sub.Link, Views: sub.Views}
		if err := m.transition(ctx, u, StageReadyForChallenge); err != nil {
			return nil, err
		}
		total := m.tracker.TotalDays()
		return []Message{{
			Text: "Thanks for sharing! " + recommendation(sub.Views),
			Menu: []Button{{Label: fmt.Sprintf(labelChallengeInfo, total), Action: ActionChallengeInfo}},
		}}, nil

	case StageInChallenge:
		return m.handleSubmission(ctx, u, text)

	case StageReadyForChallenge:
		total := m.tracker.TotalDays()
		return []Message{{
			Text: readyText,
			Menu: []Button{{Label: fmt.Sprintf(labelChallengeInfo, total), Action: ActionChallengeInfo}},
		}}, nil

	default:
		return []Message{m.welcome()}, nil
	}
}

func (m *Machine) handleSubmission(ctx context.Context, u *User, text string) ([]Message, error) {
	sub, err := ParseSubmission(text)
	if err != nil {
		return m.malformed(ctx, u, err), nil
	}

	upd, err := m.tracker.RecordSubmission(ctx, u.UserID, sub.Link, sub.Views)
	if errors.Is(err, challenge.ErrNoActiveEnrollment) {
		logger.Warn(ctx, component, "submission.rejected", slog.String("reason", "no_enrollment"))
		return []Message{{Text: notEnrolledText}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record submission: %w", err)
	}

	var out []Message
	if upd.ChartDue {
		out = append(out, Message{Chart: &ChartRequest{Points: analytics.Clone(upd.History), Caption: weeklyChartCaption}})
	}

	if upd.Completed != nil {
		if err := m.transition(ctx, u, StageReadyForChallenge); err != nil {
			return nil, err
		}
		out = append(out,
			Message{Chart: &ChartRequest{Points: analytics.Clone(upd.Completed.History), Caption: finalChartCaption}},
			Message{
				Text: completionText(m.tracker.TotalDays(), upd.Completed),
				Menu: []Button{{Label: labelStartAnother, Action: ActionStartChallenge}},
			},
		)
		return out, nil
	}

	out = append(out, Message{Text: progressText(upd)})
	if e, err := m.tracker.Active(ctx, u.UserID); err == nil && e.CurrentDay <= m.tracker.TotalDays() {
		out = append(out, Message{Text: fmt.Sprintf(nextDayText, e.CurrentDay, m.tracker.TotalDays())})
	}
	return out, nil
}

func (m *Machine) malformed(ctx context.Context, u *User, err error) []Message {
	logger.Warn(ctx, component, "submission.malformed",
		slog.String("stage", string(u.Stage)),
		slog.String("err", err.Error()),
	)
	return []Message{{Text: formatHintText}}
}

func (m *Machine) welcome() Message {
	return Message{
		Text: welcomeText,
		Menu: []Button{
			{Label: labelShareHandle, Action: ActionShareHandle},
			{Label: labelCreatorGuide, Action: ActionCreatorGuide},
			{Label: fmt.Sprintf(labelChallengeInfo, m.tracker.TotalDays()), Action: ActionChallengeInfo},
		},
	}
}

func (m *Machine) transition(ctx context.Context, u *User, to Stage) error {
	from := u.Stage
	u.Stage = to
	if err := m.save(ctx, u); err != nil {
		return err
	}
	if from != to {
		logger.Info(ctx, component, "stage.changed",
			slog.String("from", string(from)),
			slog.String("stage", string(to)),
		)
	}
	return nil
}

func (m *Machine) newUser(userID int64) *User {
	now := m.now()
	return &User{UserID: userID, Stage: StageInitial, CreatedAt: now, UpdatedAt: now}
}

func (m *Machine) load(ctx context.Context, userID int64) (*User, error) {
	u, err := m.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (m *Machine) save(ctx context.Context, u *User) error {
	u.UpdatedAt = m.now()
	if err := m.users.Put(ctx, u); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}
