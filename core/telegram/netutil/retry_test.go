package netutil

import (
	"errors"
	"fmt"
	"testing"
	"net"
	"time"

	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Verdict
	}{
		{"nil", nil, Verdict{}},
		{"flood", tele.FloodError{RetryAfter: 3}, Verdict{Retry: true, Wait: 3 * time.Second}},
		{"server", fmt.Errorf("send: %w", &tele.Error{Code: 502, Description: "Bad Gateway"}), Verdict{Retry: true}},
		{"blocked", &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}, Verdict{}},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, Verdict{Retry: true}},
		{"timeout", fmt.Errorf("post: %w", timeoutErr{}), Verdict{Retry: true}},
		{"plain", errors.New("bad request"), Verdict{}},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: Classify = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestBackoff(t *testing.T) {
	if got := Backoff(time.Second, 3, 0); got != 3*time.Second {
		t.Fatalf("uncapped = %v", got)
	}
	if got := Backoff(time.Second, 10, 5*time.Second); got != 5*time.Second {
		t.Fatalf("capped = %v", got)
	}
	if RetryableStatus(400) || !RetryableStatus(503) {
		t.Fatal("RetryableStatus misclassifies")
	}
}
