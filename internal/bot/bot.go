// Package bot adapts the conversation machine to telebot: it registers the
// command and callbacks, and turns logical replies into chat messages.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	tg "github.com/m3rciful/creatorbot/core/telegram"
	"github.com/m3rciful/creatorbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/creatorbot/core/telegram/helpers"
	"github.com/m3rciful/creatorbot/core/telegram/keyboard"
	"github.com/m3rciful/creatorbot/internal/analytics"
	"github.com/m3rciful/creatorbot/internal/chart"
	"github.com/m3rciful/creatorbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// Renderer encodes a history as an image.
type Renderer interface {
	Render(points []analytics.Point) ([]byte, error)
}

// Handlers binds a conversation machine to Telegram updates.
type Handlers struct {
	machine  *conversation.Machine
	renderer Renderer
}

// New returns handlers for machine; charts are drawn with renderer.
func New(machine *conversation.Machine, renderer Renderer) *Handlers {
	return &Handlers{machine: machine, renderer: renderer}
}

// Register wires /start, one callback per menu action and the text fallback.
func (h *Handlers) Register(reg *tg.Registry) error {
	if err := reg.AddCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "Start onboarding",
	}); err != nil {
		return err
	}
	for _, action := range conversation.Actions() {
		if err := reg.AddCallback(string(action), h.callback(action)); err != nil {
			return fmt.Errorf("register callback %s: %w", action, err)
		}
	}
	reg.SetTextFallback(h.Text)
	return nil
}

// InProgress reports whether the user's next text belongs to an open step.
func (h *Handlers) InProgress(ctx context.Context, userID int64) bool {
	return h.machine.InProgress(ctx, userID)
}

// Continue handles text consumed by an open step.
func (h *Handlers) Continue(c tele.Context) error {
	return h.Text(c)
}

// Start handles the /start command.
func (h *Handlers) Start(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	msgs, err := h.machine.Start(tghelpers.UpdateContext(c), user.ID)
	if err != nil {
		return err
	}
	return h.deliver(c, msgs)
}

// Text handles free text from any stage.
func (h *Handlers) Text(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	msgs, err := h.machine.Handle(tghelpers.UpdateContext(c), conversation.Event{
		UserID: user.ID,
		Text:   c.Text(),
		At:     eventTime(c),
	})
	if err != nil {
		return err
	}
	return h.deliver(c, msgs)
}

func (h *Handlers) callback(action conversation.Action) tele.HandlerFunc {
	return func(c tele.Context) error {
		user := c.Sender()
		if user == nil {
			return nil
		}
		msgs, err := h.machine.Handle(tghelpers.UpdateContext(c), conversation.Event{
			UserID: user.ID,
			Action: action,
			At:     eventTime(c),
		})
		if err != nil {
			return err
		}
		return h.deliver(c, msgs)
	}
}

// deliver enqueues replies in order. Charts render on the sender worker.
func (h *Handlers) deliver(c tele.Context, msgs []conversation.Message) error {
	for _, m := range msgs {
		var err error
		switch {
		case m.Chart != nil:
			points := m.Chart.Points
			err = tghelpers.SendPhoto(c, m.Chart.Caption, func() ([]byte, error) {
				return h.render(points)
			})
		case len(m.Menu) > 0:
			err = tghelpers.SendMenu(c, m.Text, Markup(m.Menu))
		default:
			err = tghelpers.SendText(c, m.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// render maps an empty history to no image so the send is skipped.
func (h *Handlers) render(points []analytics.Point) ([]byte, error) {
	img, err := h.renderer.Render(points)
	if errors.Is(err, chart.ErrNoData) {
		return nil, nil
	}
	return img, err
}

// Markup lays out one inline button per row, keyed by action.
func Markup(menu []conversation.Button) *tele.ReplyMarkup {
	buttons := make([]keyboard.Button, 0, len(menu))
	for _, b := range menu {
		buttons = append(buttons, keyboard.Button{Text: b.Label, Unique: string(b.Action)})
	}
	return keyboard.Column(buttons...)
}

func eventTime(c tele.Context) time.Time {
	if msg := c.Message(); msg != nil && msg.Unixtime > 0 {
		return msg.Time()
	}
	return time.Now()
}

// Notifier sends reminder texts through the bot.
type Notifier struct {
	send func(chatID int64, text string) error
}

// NewNotifier wraps a running bot.
func NewNotifier(b *tele.Bot) *Notifier {
	return &Notifier{send: func(chatID int64, text string) error {
		_, err := b.Send(tele.ChatID(chatID), text)
		return err
	}}
}

// Remind sends the daily prompt to the user's private chat and returns once
// Telegram accepted or finally rejected it.
func (n *Notifier) Remind(ctx context.Context, userID int64, day, totalDays int) error {
	text := conversation.ReminderText(day, totalDays)
	return tghelpers.Deliver(ctx, userID, "send.reminder", func() error {
		return n.send(userID, text)
	})
}
