// Package telegram runs a telebot bot with the shared sender, middlewares and
// route registry.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/creatorbot/core/config"
	"github.com/m3rciful/creatorbot/core/logger"
	tghelpers "github.com/m3rciful/creatorbot/core/telegram/helpers"
	"github.com/m3rciful/creatorbot/core/telegram/middleware"
	"github.com/m3rciful/creatorbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const component = "tg"

// Route binds a handler to a telebot endpoint such as "/start" or
// tele.OnText.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions describes one bot run.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry
	Routes   []Route
	// Middlewares default to Recover and Trace.
	Middlewares []tele.MiddlewareFunc

	// OnStart runs after routes are wired and before updates are polled.
	OnStart func(ctx context.Context, rt Runtime) error
	// OnStop runs after polling stopped, before the sender drains.
	OnStop func(ctx context.Context, rt Runtime) error
}

// Runtime is what lifecycle hooks get to work with.
type Runtime struct {
	Bot    *tele.Bot
	Sender *sender.Dispatcher
}

// DefaultMiddlewares recovers panics and attaches update metadata.
func DefaultMiddlewares() []tele.MiddlewareFunc {
	return []tele.MiddlewareFunc{middleware.Recover, middleware.Trace}
}

// RunTelegram starts the bot and blocks until ctx is done or polling stops.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("telegram: nil config")
	}
	cfg := opts.Config

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: newPoller(cfg),
		Client: NewHTTPClient(ClientOptions{Timeout: pollTimeout(cfg) + 10*time.Second}),
	})
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	logMode(ctx, bot, cfg, logger.Took(start))

	out := sender.NewDispatcher(SenderOptions(cfg.Sender))
	tghelpers.SetDispatcher(out)
	defer func() {
		out.Close()
		tghelpers.SetDispatcher(nil)
		s := out.Stats()
		logger.Info(logger.Background(), component, "sender.drained",
			slog.Uint64("sent", s.Sent),
			slog.Uint64("failed", s.Failed),
			slog.Uint64("retried", s.Retried),
		)
	}()

	mws := opts.Middlewares
	if mws == nil {
		mws = DefaultMiddlewares()
	}
	bot.Use(mws...)
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	if opts.Registry != nil {
		if err := bot.SetCommands(opts.Registry.Menu()); err != nil {
			logger.Warn(ctx, component, "commands.publish_failed", slog.String("err", err.Error()))
		}
	}

	rt := Runtime{Bot: bot, Sender: out}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	polling := make(chan struct{})
	go func() {
		defer close(polling)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-polling
	case <-polling:
	}

	if opts.OnStop != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := opts.OnStop(stopCtx, rt); err != nil {
			return err
		}
	}
	return nil
}

// SenderOptions maps the sender config section onto dispatcher options.
func SenderOptions(cfg coreconfig.SenderConfig) sender.Options {
	return sender.Options{
		QueueSize:    cfg.QueueSize,
		Workers:      cfg.Workers,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: time.Duration(cfg.RetryBackoffMS) * time.Millisecond,
	}
}

func newPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: pollTimeout(cfg)}
}

func pollTimeout(cfg *coreconfig.Config) time.Duration {
	if s := cfg.Telegram.LongPollTimeoutSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return 10 * time.Second
}

func logMode(ctx context.Context, bot *tele.Bot, cfg *coreconfig.Config, took time.Duration) {
	if wh, ok := bot.Poller.(*tele.Webhook); ok {
		logger.Info(ctx, component, "mode",
			slog.String("mode", "webhook"),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
			slog.Duration("duration", took),
		)
		return
	}
	logger.Info(ctx, component, "mode",
		slog.String("mode", "polling"),
		slog.Duration("poll_timeout", pollTimeout(cfg)),
		slog.Duration("duration", took),
	)
	// A webhook left over from an earlier deployment blocks getUpdates.
	if err := bot.RemoveWebhook(false); err != nil {
		logger.Warn(ctx, component, "webhook.remove_failed", slog.String("err", err.Error()))
	}
}
