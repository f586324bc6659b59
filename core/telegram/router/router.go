// Package router turns a Registry into telebot routes and logs one summary
// line per handled update.
package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/creatorbot/core/logger"
	tg "github.com/m3rciful/creatorbot/core/telegram"
	tghelpers "github.com/m3rciful/creatorbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Conversation owns free text while the user is inside a multi-step flow.
type Conversation interface {
	InProgress(ctx context.Context, userID int64) bool
	Continue(c tele.Context) error
}

// Routes builds the command, callback and text routes for reg.
func Routes(reg *tg.Registry, conv Conversation) []tg.Route {
	routes := make([]tg.Route, 0, len(reg.CommandNames())+2)
	for _, name := range reg.CommandNames() {
		_, cmd, _ := reg.Command(name)
		routes = append(routes, tg.Route{Endpoint: name, Handler: named(handlerName(name), cmd.Handler)})
	}
	routes = append(routes,
		tg.Route{Endpoint: tele.OnCallback, Handler: callbacks(reg)},
		tg.Route{Endpoint: tele.OnText, Handler: text(reg, conv)},
	)
	logger.Info(logger.Background(), "tg.wire", "routes.built",
		slog.Int("commands", len(reg.CommandNames())),
		slog.Int("callbacks", len(reg.CallbackKeys())),
	)
	return routes
}

func named(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error { return serve(c, name, h) }
}

func callbacks(reg *tg.Registry) tele.HandlerFunc {
	return func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		key := callbackKey(cb)
		h, ok := reg.Callback(key)
		if !ok {
			return serve(c, "callback.unknown", func(c tele.Context) error {
				return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
			}, slog.String("cb_key", key))
		}
		// Stops the button spinner before the handler does any work.
		_ = c.Respond()
		return serve(c, "callback."+handlerName(key), h, slog.String("cb_key", key))
	}
}

func text(reg *tg.Registry, conv Conversation) tele.HandlerFunc {
	return func(c tele.Context) error {
		if conv != nil && c.Sender() != nil && conv.InProgress(tghelpers.UpdateContext(c), c.Sender().ID) {
			return serve(c, "conversation", conv.Continue)
		}
		if name, cmd, ok := reg.Command(c.Text()); ok {
			return serve(c, handlerName(name), cmd.Handler)
		}
		if fb := reg.TextFallback(); fb != nil {
			return serve(c, "fallback", fb)
		}
		return serve(c, "unknown_text", func(tele.Context) error { return nil }, slog.String("status", "skip"))
	}
}

// callbackKey extracts the button key from cb. telebot prefixes data-only
// buttons with \f and separates the payload with a pipe.
func callbackKey(cb *tele.Callback) string {
	if cb.Unique != "" {
		return cb.Unique
	}
	key, _, _ := strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(key)
}

func handlerName(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}
