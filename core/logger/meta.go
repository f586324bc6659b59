package logger

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Meta identifies the Telegram update a log line belongs to.
type Meta struct {
	UpdateID int
	ChatID   int64
	UserID   int64
	Handler  string
}

type metaKey struct{}

// WithMeta attaches m to ctx; the handler adds its fields to every line.
func WithMeta(ctx context.Context, m Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, metaKey{}, m)
}

// MetaFrom returns the update metadata stored in ctx, if any.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}

// WithHandler records the handler name serving the update.
func WithHandler(ctx context.Context, name string) context.Context {
	m := MetaFrom(ctx)
	m.Handler = name
	return WithMeta(ctx, m)
}

// RID is the compact correlation id: update, chat and user in base 36.
func (m Meta) RID() string {
	if m.UpdateID == 0 && m.ChatID == 0 && m.UserID == 0 {
		return ""
	}
	return strconv.FormatInt(int64(m.UpdateID), 36) + "." +
		strconv.FormatInt(m.ChatID, 36) + "." +
		strconv.FormatInt(m.UserID, 36)
}

// FullRID is the decimal form of RID.
func (m Meta) FullRID() string {
	if m.RID() == "" {
		return ""
	}
	return strconv.Itoa(m.UpdateID) + ":" +
		strconv.FormatInt(m.ChatID, 10) + ":" +
		strconv.FormatInt(m.UserID, 10)
}

// Clip strips control characters from s and keeps at most max runes.
func Clip(s string, max int) string {
	if max <= 0 {
		return ""
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == max {
			break
		}
		if r != '\n' && r != '\t' && (unicode.IsControl(r) || unicode.Is(unicode.Cf, r)) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// Took returns the time since start rounded to milliseconds.
func Took(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
