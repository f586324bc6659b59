// Package middleware holds the global telebot middlewares.
package middleware

import (
	"log/slog"

	"github.com/m3rciful/creatorbot/core/logger"
	tghelpers "github.com/m3rciful/creatorbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Trace attaches update metadata to the context and logs a sampled debug
// line describing the incoming update.
func Trace(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.UpdateContext(c)
		if logger.SampleDebug() {
			logger.Debug(ctx, "tg", "update.received", describe(c)...)
		}
		return next(c)
	}
}

func describe(c tele.Context) []slog.Attr {
	var attrs []slog.Attr
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		attrs = append(attrs,
			slog.String("username", logger.Clip(user.Username, 64)),
			slog.String("lang", user.LanguageCode),
		)
	}
	switch upd := c.Update(); {
	case upd.Callback != nil:
		key := upd.Callback.Unique
		if key == "" {
			key = upd.Callback.Data
		}
		attrs = append(attrs, slog.String("cb_key", logger.Clip(key, 128)))
	case upd.Message != nil:
		attrs = append(attrs, slog.String("payload", logger.Clip(upd.Message.Text, 256)))
	}
	return attrs
}
