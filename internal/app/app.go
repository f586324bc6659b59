// Package app assembles the creator bot from its stores, services and
// Telegram handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/creatorbot/core/bootstrap"
	"github.com/m3rciful/creatorbot/core/logger"
	tg "github.com/m3rciful/creatorbot/core/telegram"
	"github.com/m3rciful/creatorbot/core/telegram/router"
	"github.com/m3rciful/creatorbot/internal/adminhttp"
	"github.com/m3rciful/creatorbot/internal/bot"
	"github.com/m3rciful/creatorbot/internal/challenge"
	"github.com/m3rciful/creatorbot/internal/chart"
	"github.com/m3rciful/creatorbot/internal/conversation"
	"github.com/m3rciful/creatorbot/internal/reminder"
	"github.com/m3rciful/creatorbot/internal/storage/memory"
	"github.com/m3rciful/creatorbot/internal/storage/postgres"
)

const component = "app"

// App holds the wired services for one process.
type App struct {
	cfg      *Config
	infra    *bootstrap.Result
	tracker  *challenge.Tracker
	machine  *conversation.Machine
	renderer *chart.Renderer
	handlers *bot.Handlers
	registry *tg.Registry

	admin      *adminhttp.Server
	stopWorker context.CancelFunc
	workers    sync.WaitGroup
}

// Bootstrap initialises logging and storage and wires the services.
func Bootstrap(cfg *Config, opts bootstrap.Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	opts.Config = &cfg.Config
	opts.Database = cfg.DatabaseConfig()
	infra, err := bootstrap.Run(opts)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, infra: infra}

	var (
		users       conversation.UserStore
		enrollments challenge.EnrollmentStore
		history     challenge.HistoryStore
	)
	if infra.DB != nil {
		users = postgres.NewUserStore(infra.DB)
		enrollments = postgres.NewEnrollmentStore(infra.DB)
		history = postgres.NewHistoryStore(infra.DB)
	} else {
		users = memory.NewUserStore()
		enrollments = memory.NewEnrollmentStore()
		history = memory.NewHistoryStore()
	}

	a.tracker = challenge.NewTracker(enrollments, history, cfg.Challenge)
	a.machine = conversation.NewMachine(users, a.tracker)
	a.renderer = chart.NewRenderer(cfg.Chart)
	a.handlers = bot.New(a.machine, a.renderer)
	a.registry = tg.NewRegistry()
	if err := a.handlers.Register(a.registry); err != nil {
		_ = infra.Close()
		return nil, err
	}

	logger.Info(logger.Background(), component, "app.wired",
		slog.String("storage", cfg.Storage.Driver),
		slog.Int("total_days", a.tracker.TotalDays()),
		slog.Bool("reminders", cfg.Reminder.Enabled),
		slog.Bool("admin", cfg.Admin.Listen != ""),
	)
	return a, nil
}

// Tracker exposes the challenge tracker.
func (a *App) Tracker() *challenge.Tracker { return a.tracker }

// Machine exposes the conversation machine.
func (a *App) Machine() *conversation.Machine { return a.machine }

// TelegramRunOptions describes routes, middlewares and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(),
		Routes:      router.Routes(a.registry, a.handlers),
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	if a.cfg.Admin.Listen != "" {
		srv := adminhttp.NewServer(a.cfg.Admin.Listen, adminhttp.NewRouter(a.tracker, a.renderer))
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("admin server: %w", err)
		}
		a.admin = srv
	}

	if a.cfg.Reminder.Enabled && rt.Bot != nil {
		workerCtx, cancel := context.WithCancel(context.Background())
		a.stopWorker = cancel
		w := reminder.NewWorker(a.tracker, bot.NewNotifier(rt.Bot), a.cfg.Reminder)
		a.workers.Add(1)
		go func() {
			defer a.workers.Done()
			w.Start(workerCtx)
		}()
	}
	return nil
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	if a.stopWorker != nil {
		a.stopWorker()
		a.workers.Wait()
		a.stopWorker = nil
	}
	if a.admin != nil {
		err := a.admin.Shutdown(ctx)
		a.admin = nil
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("admin shutdown: %w", err)
		}
	}
	return nil
}

// Close releases the database connection.
func (a *App) Close() error {
	return a.infra.Close()
}
