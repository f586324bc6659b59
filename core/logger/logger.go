// Package logger is the process-wide structured logger. Every line carries a
// component and an event name; update metadata travels in the context.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/creatorbot/core/buildinfo"
	coreconfig "github.com/m3rciful/creatorbot/core/config"
)

type state struct {
	log     *slog.Logger
	sink    *lineSink
	files   []io.Closer
	sampler *sampler
	trace   bool
}

var (
	current  atomic.Pointer[state]
	initOnce sync.Once
	stopOnce sync.Once
	level    slog.LevelVar
)

func init() {
	// Falls back to the slog default until InitLogger runs.
	current.Store(&state{log: slog.Default(), sampler: newSampler(1, 50)})
}

// InitLogger installs the structured handler described by cfg. Later calls
// are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() { err = install(settingsFrom(cfg)) })
	return err
}

func install(s settings) error {
	writers := []io.Writer{os.Stdout}
	var files []io.Closer
	if s.file != "" {
		if err := os.MkdirAll(filepath.Dir(s.file), 0o755); err != nil {
			return fmt.Errorf("logger: create log dir: %w", err)
		}
		f, err := os.OpenFile(s.file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("logger: open log file: %w", err)
		}
		writers = append(writers, f)
		files = append(files, f)
	}

	level.Set(s.level)
	sink := newLineSink(writers...)
	log := slog.New(newHandler(&level, sink, s.format, s.order))
	slog.SetDefault(log)
	current.Store(&state{
		log:     log,
		sink:    sink,
		files:   files,
		sampler: newSampler(s.sampleNum, s.sampleDen),
		trace:   s.trace,
	})

	Info(context.Background(), "app", "startup",
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("profile", s.profile),
	)
	return nil
}

// Shutdown drains pending lines and closes log files.
func Shutdown() error {
	var err error
	stopOnce.Do(func() {
		st := current.Load()
		var errs []error
		if st.sink != nil {
			errs = append(errs, st.sink.Close())
		}
		for _, f := range st.files {
			errs = append(errs, f.Close())
		}
		err = errors.Join(errs...)
	})
	return err
}

// Background is the root context for lines logged outside an update.
func Background() context.Context { return context.Background() }

// Log writes one event line for component at lvl.
func Log(ctx context.Context, lvl slog.Level, component, event string, attrs ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := current.Load().log
	if !log.Enabled(ctx, lvl) {
		return
	}
	head := make([]slog.Attr, 0, len(attrs)+2)
	if component = strings.TrimSpace(component); component != "" {
		head = append(head, slog.String(keyComponent, component))
	}
	head = append(head, slog.String(keyEvent, event))
	log.LogAttrs(ctx, lvl, event, append(head, attrs...)...)
}

// Debug logs a debug event.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelDebug, component, event, attrs...)
}

// Info logs an info event.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelInfo, component, event, attrs...)
}

// Warn logs a warning event.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelWarn, component, event, attrs...)
}

// Error logs an error event.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelError, component, event, attrs...)
}

// SampleDebug reports whether a high-volume debug line should be written.
// TRACE=1 in the environment disables sampling.
func SampleDebug() bool {
	st := current.Load()
	if st.trace {
		return true
	}
	return st.sampler.Allow()
}
