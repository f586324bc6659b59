package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/creatorbot/core/logger"
	tghelpers "github.com/m3rciful/creatorbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// PanicError replaces the panic of a handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("handler panic: %v", e.Value) }

// Code is the err_code logged for the update.
func (e *PanicError) Code() string { return "panic" }

// Recover turns a handler panic into a *PanicError and logs the stack.
func Recover(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error(tghelpers.UpdateContext(c), "tg", "handler.panic",
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = &PanicError{Value: r}
		}()
		return next(c)
	}
}
