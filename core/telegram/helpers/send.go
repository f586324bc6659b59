package helpers

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"

	"github.com/m3rciful/creatorbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// ErrNoDispatcher is returned when no sender is installed.
var ErrNoDispatcher = errors.New("telegram helpers: no dispatcher")

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the sender used by the helpers; nil removes it.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

func submit(ctx context.Context, j sender.Job, wait bool) error {
	d := dispatcher.Load()
	if d == nil {
		return ErrNoDispatcher
	}
	if wait {
		return d.Do(ctx, j)
	}
	return d.Submit(ctx, j)
}

func reply(c tele.Context, action, endpoint string, run func() error) error {
	var key int64
	if chat := c.Chat(); chat != nil {
		key = chat.ID
	} else if user := c.Sender(); user != nil {
		key = user.ID
	}
	err := submit(UpdateContext(c), sender.Job{Key: key, Action: action, Endpoint: endpoint, Run: run}, false)
	if err == nil {
		countReply(c)
	}
	return err
}

// SendText queues plain text for the chat of c.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	return reply(c, "send.text", "sendMessage", func() error {
		if len(opts) > 0 && opts[0] != nil {
			return c.Send(text, opts[0])
		}
		return c.Send(text)
	})
}

// SendMenu queues text with an inline keyboard.
func SendMenu(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if markup == nil {
		return SendText(c, text)
	}
	return SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
}

// SendPhoto queues an image; render runs on the sender worker. A nil image
// with a nil error skips the send.
func SendPhoto(c tele.Context, caption string, render func() ([]byte, error)) error {
	return reply(c, "send.photo", "sendPhoto", func() error {
		img, err := render()
		if err != nil || len(img) == 0 {
			return err
		}
		return c.Send(&tele.Photo{File: tele.FromReader(bytes.NewReader(img)), Caption: caption})
	})
}

// Deliver runs send for chatID outside an update and waits for its final
// outcome, so callers can act on whether Telegram accepted the message.
func Deliver(ctx context.Context, chatID int64, action string, send func() error) error {
	return submit(ctx, sender.Job{Key: chatID, Action: action, Endpoint: "sendMessage", Run: send}, true)
}
