package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/creatorbot/core/logger"
	tghelpers "github.com/m3rciful/creatorbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// serve runs h under name and logs the handler.handled summary with the
// number of replies it queued.
func serve(c tele.Context, name string, h tele.HandlerFunc, extra ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.TagHandler(c, name)
	err := h(c)

	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.Int("replies", tghelpers.Replies(c)),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs[0] = slog.String("status", "fail")
		attrs = append(attrs,
			slog.String("err", logger.Clip(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	// extra may override status.
	attrs = append(attrs, extra...)
	logger.Info(ctx, "tg", "handler.handled", attrs...)
	return err
}

// errorCode names err for dashboards: a Code() method wins, otherwise the
// concrete type name of the outermost error.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
