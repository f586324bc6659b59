package conversation_test

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/m3rciful/creatorbot/internal/challenge"
	"github.com/m3rciful/creatorbot/internal/conversation"
	"github.com/m3rciful/creatorbot/internal/storage/memory"
)

const uid int64 = 42

type harness struct {
	machine *conversation.Machine
	tracker *challenge.Tracker
	users   *memory.UserStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tracker := challenge.NewTracker(memory.NewEnrollmentStore(), memory.NewHistoryStore(), challenge.Config{})
	users := memory.NewUserStore()
	return &harness{machine: conversation.NewMachine(users, tracker), tracker: tracker, users: users}
}

func (h *harness) text(t *testing.T, text string) []conversation.Message {
	t.Helper()
	msgs, err := h.machine.Handle(context.Background(), conversation.Event{UserID: uid, Text: text})
	if err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
	return msgs
}

func (h *harness) press(t *testing.T, a conversation.Action) []conversation.Message {
	t.Helper()
	msgs, err := h.machine.Handle(context.Background(), conversation.Event{UserID: uid, Action: a})
	if err != nil {
		t.Fatalf("press %s: %v", a, err)
	}
	return msgs
}

func (h *harness) stage(t *testing.T) conversation.Stage {
	t.Helper()
	s, err := h.machine.Stage(context.Background(), uid)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	return s
}

func actions(msg conversation.Message) []conversation.Action {
	out := make([]conversation.Action, 0, len(msg.Menu))
	for _, b := range msg.Menu {
		out = append(out, b.Action)
	}
	return out
}

func TestFirstContactShowsWelcomeMenu(t *testing.T) {
	h := newHarness(t)
	msgs := h.text(t, "hello")
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Welcome") {
		t.Fatalf("msgs = %+v", msgs)
	}
	got := actions(msgs[0])
	want := []conversation.Action{conversation.ActionShareHandle, conversation.ActionCreatorGuide, conversation.ActionChallengeInfo}
	if len(got) != len(want) {
		t.Fatalf("menu = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("menu = %v, want %v", got, want)
		}
	}
	if h.stage(t) != conversation.StageInitial {
		t.Fatalf("stage = %s", h.stage(t))
	}
}

func TestOnboardingFunnel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.machine.Start(ctx, uid); err != nil {
		t.Fatalf("start: %v", err)
	}

	h.press(t, conversation.ActionShareHandle)
	if h.stage(t) != conversation.StageAwaitingHandle {
		t.Fatalf("stage = %s", h.stage(t))
	}
	if !h.machine.InProgress(ctx, uid) {
		t.Fatal("awaiting handle should consume text")
	}

	h.text(t, "@creator")
	if h.stage(t) != conversation.StageAwaitingViralContent {
		t.Fatalf("stage = %s", h.stage(t))
	}

	msgs := h.text(t, "https://example.org/v, 12000")
	if h.stage(t) != conversation.StageReadyForChallenge {
		t.Fatalf("stage = %s", h.stage(t))
	}
	if !strings.Contains(msgs[0].Text, "high viral potential") {
		t.Fatalf("reply = %q", msgs[0].Text)
	}
	if a := actions(msgs[0]); len(a) != 1 || a[0] != conversation.ActionChallengeInfo {
		t.Fatalf("menu = %v", a)
	}

	u, err := h.users.Get(ctx, uid)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.SocialHandle != "@creator" || u.ViralContent == nil || u.ViralContent.Views != 12000 {
		t.Fatalf("user = %+v", u)
	}
}

func TestMalformedViralContentKeepsStage(t *testing.T) {
	h := newHarness(t)
	h.press(t, conversation.ActionShareHandle)
	h.text(t, "@creator")

	msgs := h.text(t, "onlylink")
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "format") {
		t.Fatalf("msgs = %+v", msgs)
	}
	if h.stage(t) != conversation.StageAwaitingViralContent {
		t.Fatalf("stage = %s", h.stage(t))
	}
}

func TestGuideAndInfoDoNotChangeStage(t *testing.T) {
	h := newHarness(t)
	h.text(t, "hi")

	guide := h.press(t, conversation.ActionCreatorGuide)
	if !strings.Contains(guide[0].Text, "Creator Guide") {
		t.Fatalf("guide = %q", guide[0].Text)
	}
	info := h.press(t, conversation.ActionChallengeInfo)
	if a := actions(info[0]); len(a) != 1 || a[0] != conversation.ActionStartChallenge {
		t.Fatalf("info menu = %v", a)
	}
	if h.stage(t) != conversation.StageInitial {
		t.Fatalf("stage = %s", h.stage(t))
	}
}

func TestStartChallengeEmitsDayOnePrompt(t *testing.T) {
	h := newHarness(t)
	msgs := h.press(t, conversation.ActionStartChallenge)
	if len(msgs) != 2 || !strings.HasPrefix(msgs[1].Text, "Day 1/21") {
		t.Fatalf("msgs = %+v", msgs)
	}
	if h.stage(t) != conversation.StageInChallenge {
		t.Fatalf("stage = %s", h.stage(t))
	}
}

func TestSubmissionFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.press(t, conversation.ActionStartChallenge)

	msgs := h.text(t, "https://example.org/1, 100")
	if len(msgs) != 2 {
		t.Fatalf("msgs = %+v", msgs)
	}
	if !strings.Contains(msgs[0].Text, "Day 1 Update Recorded") || !strings.Contains(msgs[0].Text, "Days Remaining: 20") {
		t.Fatalf("progress = %q", msgs[0].Text)
	}
	if !strings.HasPrefix(msgs[1].Text, "Day 2/21") {
		t.Fatalf("next prompt = %q", msgs[1].Text)
	}

	before, _ := h.tracker.Active(ctx, uid)
	bad := h.text(t, "onlylink")
	if len(bad) != 1 || !strings.Contains(bad[0].Text, "format") {
		t.Fatalf("malformed reply = %+v", bad)
	}
	after, _ := h.tracker.Active(ctx, uid)
	if after.CurrentDay != before.CurrentDay {
		t.Fatalf("malformed input moved day %d -> %d", before.CurrentDay, after.CurrentDay)
	}
}

func TestWeeklyChartAndCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.press(t, conversation.ActionStartChallenge)

	for day := 1; day <= 21; day++ {
		msgs := h.text(t, "https://example.org/p, "+strconv.Itoa(100*day))

		var charts []string
		for _, m := range msgs {
			if m.Chart != nil {
				charts = append(charts, m.Chart.Caption)
				if len(m.Chart.Points) != day {
					t.Fatalf("day %d chart has %d points", day, len(m.Chart.Points))
				}
			}
		}
		switch {
		case day == 21:
			if len(charts) != 2 {
				t.Fatalf("day 21 charts = %v", charts)
			}
			last := msgs[len(msgs)-1]
			if !strings.Contains(last.Text, "Congratulations") || !strings.Contains(last.Text, "Total Views: 23,100") {
				t.Fatalf("completion = %q", last.Text)
			}
			if !strings.Contains(last.Text, "Growth Rate: 2000.0%") {
				t.Fatalf("growth rate should not carry separators: %q", last.Text)
			}
			if !strings.Contains(last.Text, "Outstanding growth") {
				t.Fatalf("completion tier missing: %q", last.Text)
			}
			if a := actions(last); len(a) != 1 || a[0] != conversation.ActionStartChallenge {
				t.Fatalf("completion menu = %v", a)
			}
		case day%7 == 0:
			if len(charts) != 1 || charts[0] != "Your 7-day growth chart 📈" {
				t.Fatalf("day %d charts = %v", day, charts)
			}
		default:
			if len(charts) != 0 {
				t.Fatalf("day %d unexpected charts %v", day, charts)
			}
		}
	}

	if h.stage(t) != conversation.StageReadyForChallenge {
		t.Fatalf("stage after completion = %s", h.stage(t))
	}
	if _, err := h.tracker.Active(ctx, uid); err == nil {
		t.Fatal("enrollment should be removed after completion")
	}

	restart := h.press(t, conversation.ActionStartChallenge)
	if !strings.HasPrefix(restart[1].Text, "Day 1/21") {
		t.Fatalf("restart prompt = %q", restart[1].Text)
	}
}

func TestStartWhileEnrolledReportsCurrentDay(t *testing.T) {
	h := newHarness(t)
	h.press(t, conversation.ActionStartChallenge)
	h.text(t, "l, 10")
	h.text(t, "l, 20")

	msgs := h.press(t, conversation.ActionStartChallenge)
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "day 3/21") {
		t.Fatalf("msgs = %+v", msgs)
	}
}

func TestRestartKeepsEnrollment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.press(t, conversation.ActionStartChallenge)
	h.text(t, "l, 10")

	if _, err := h.machine.Start(ctx, uid); err != nil {
		t.Fatalf("start: %v", err)
	}
	if h.stage(t) != conversation.StageInitial {
		t.Fatalf("stage = %s", h.stage(t))
	}
	e, err := h.tracker.Active(ctx, uid)
	if err != nil || e.CurrentDay != 2 {
		t.Fatalf("enrollment = %+v, %v", e, err)
	}
}

func TestUnknownActionIsError(t *testing.T) {
	h := newHarness(t)
	if _, err := h.machine.Handle(context.Background(), conversation.Event{UserID: uid, Action: "nope"}); err == nil {
		t.Fatal("expected error for unknown action")
	}
}
