package helpers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/m3rciful/creatorbot/core/logger"
	"github.com/m3rciful/creatorbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// fakeAPI answers every Bot API call with a sent message.
func fakeAPI(t *testing.T) (*tele.Bot, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			calls.Add(1)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":9,"type":"private"}}}`)
	}))
	t.Cleanup(srv.Close)

	b, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "1:test", Offline: true})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	return b, &calls
}

func withDispatcher(t *testing.T) *sender.Dispatcher {
	t.Helper()
	d := sender.NewDispatcher(sender.Options{Workers: 2})
	SetDispatcher(d)
	t.Cleanup(func() {
		SetDispatcher(nil)
		d.Close()
	})
	return d
}

func TestSendTextCountsReplies(t *testing.T) {
	b, calls := fakeAPI(t)
	d := withDispatcher(t)
	c := b.NewContext(tele.Update{ID: 5, Message: &tele.Message{
		Chat:   &tele.Chat{ID: 9, Type: tele.ChatPrivate},
		Sender: &tele.User{ID: 7},
	}})

	if err := SendText(c, "one"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := SendMenu(c, "two", nil); err != nil {
		t.Fatalf("menu: %v", err)
	}
	if got := Replies(c); got != 2 {
		t.Fatalf("replies = %d, want 2", got)
	}

	d.Close()
	if calls.Load() != 2 {
		t.Fatalf("api calls = %d, want 2", calls.Load())
	}
	if m := logger.MetaFrom(UpdateContext(c)); m.UpdateID != 5 || m.ChatID != 9 || m.UserID != 7 {
		t.Fatalf("meta = %+v", m)
	}
}

func TestDeliverReportsSendOutcome(t *testing.T) {
	withDispatcher(t)
	ctx := context.Background()

	blocked := &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}
	if err := Deliver(ctx, 9, "send.reminder", func() error { return blocked }); !errors.Is(err, blocked) {
		t.Fatalf("err = %v, want the send error", err)
	}
	if err := Deliver(ctx, 9, "send.reminder", func() error { return nil }); err != nil {
		t.Fatalf("deliver: %v", err)
	}
}

func TestNoDispatcher(t *testing.T) {
	SetDispatcher(nil)
	ran := false
	err := Deliver(context.Background(), 1, "send.reminder", func() error { ran = true; return nil })
	if !errors.Is(err, ErrNoDispatcher) || ran {
		t.Fatalf("err = %v ran = %v", err, ran)
	}
}
