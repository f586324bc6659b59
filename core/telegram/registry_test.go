package telegram

import (
	"errors"
	"testing"

	"github.com/m3rciful/creatorbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	must(reg.AddCommand("/start", commands.Command{Handler: noop, Description: "Start", Aliases: []string{"menu"}}))
	must(reg.AddCommand("/progress", commands.Command{Handler: noop, Description: "Progress"}))
	must(reg.AddCommand("/debug", commands.Command{Handler: noop, Description: "Debug", Hidden: true}))

	if err := reg.AddCommand("noslash", commands.Command{Handler: noop, Description: "x"}); !errors.Is(err, ErrInvalidRoute) {
		t.Fatalf("err = %v, want ErrInvalidRoute", err)
	}
	if err := reg.AddCommand("/start", commands.Command{Handler: noop, Description: "again"}); !errors.Is(err, ErrDuplicateRoute) {
		t.Fatalf("err = %v, want ErrDuplicateRoute", err)
	}

	menu := reg.Menu()
	if len(menu) != 2 || menu[0].Text != "progress" || menu[1].Text != "start" {
		t.Fatalf("menu = %+v", menu)
	}
	if len(reg.CommandNames()) != 3 {
		t.Fatalf("hidden command missing from names: %v", reg.CommandNames())
	}

	name, _, ok := reg.Command(" Menu ")
	if !ok || name != "/start" {
		t.Fatalf("alias lookup = %q, %v", name, ok)
	}
	if _, _, ok := reg.Command("progress"); !ok {
		t.Fatal("slash-less command not resolved")
	}
	if _, _, ok := reg.Command("https://example.org/post, 100"); ok {
		t.Fatal("submission text must not resolve to a command")
	}
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	if err := reg.AddCallback("start_challenge", noop); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := reg.AddCallback("start_challenge", noop); !errors.Is(err, ErrDuplicateRoute) {
		t.Fatalf("err = %v, want ErrDuplicateRoute", err)
	}
	if _, ok := reg.Callback("start_challenge"); !ok {
		t.Fatal("callback not found")
	}
	if got := reg.CallbackKeys(); len(got) != 1 || got[0] != "start_challenge" {
		t.Fatalf("CallbackKeys = %v", got)
	}
}
