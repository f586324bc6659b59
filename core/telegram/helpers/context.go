// Package helpers bridges telebot contexts to the logger and the sender.
package helpers

import (
	"context"

	"github.com/m3rciful/creatorbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	ctxSlot     = "core.ctx"
	repliesSlot = "core.replies"
)

// UpdateContext returns the context.Context for the update in c, carrying
// its update, chat and user ids. It is built once per update.
func UpdateContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxSlot).(context.Context); ok {
		return ctx
	}
	m := logger.Meta{UpdateID: c.Update().ID}
	if chat := c.Chat(); chat != nil {
		m.ChatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		m.UserID = user.ID
	}
	ctx := logger.WithMeta(context.Background(), m)
	c.Set(ctxSlot, ctx)
	return ctx
}

// TagHandler names the handler serving c in all later log lines.
func TagHandler(c tele.Context, name string) context.Context {
	ctx := logger.WithHandler(UpdateContext(c), name)
	c.Set(ctxSlot, ctx)
	return ctx
}

// Replies reports how many messages were queued in reply to the update.
func Replies(c tele.Context) int {
	n, _ := c.Get(repliesSlot).(int)
	return n
}

func countReply(c tele.Context) {
	c.Set(repliesSlot, Replies(c)+1)
}
