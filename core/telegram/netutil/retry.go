// Package netutil decides which Telegram API failures are worth another try.
package netutil

import (
	"errors"
	"net"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Verdict is the retry decision for one failed call.
type Verdict struct {
	Retry bool
	// Wait is the delay Telegram asked for; zero means use the local backoff.
	Wait time.Duration
}

// Classify inspects err. Network timeouts, dial failures, flood control and
// Telegram 5xx replies are retried; everything else is final.
func Classify(err error) Verdict {
	if err == nil {
		return Verdict{}
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return Verdict{Retry: true, Wait: time.Duration(flood.RetryAfter) * time.Second}
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return Verdict{Retry: apiErr.Code >= http.StatusInternalServerError}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return Verdict{Retry: true}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Verdict{Retry: true}
	}
	return Verdict{}
}

// RetryableStatus reports whether an HTTP reply from the Bot API is transient.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Backoff returns the linear delay before attempt n (1-based), capped at max.
func Backoff(base time.Duration, n int, max time.Duration) time.Duration {
	d := base * time.Duration(n)
	if max > 0 && d > max {
		return max
	}
	return d
}
