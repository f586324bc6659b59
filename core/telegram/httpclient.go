package telegram

import (
	"io"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/creatorbot/core/telegram/netutil"
)

// ClientOptions tunes the HTTP client used for Bot API calls.
type ClientOptions struct {
	// Timeout bounds a whole call; it must exceed the long-poll timeout.
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	} else if o.Retries == 0 {
		o.Retries = 2
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	return o
}

// NewHTTPClient returns a client whose transport retries dial errors,
// timeouts and 502/503/504 replies for requests that can be replayed.
func NewHTTPClient(opts ClientOptions) *http.Client {
	opts = opts.withDefaults()
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: &replayTransport{next: base, retries: opts.Retries, backoff: opts.Backoff},
	}
}

type replayTransport struct {
	next    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *replayTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	replayable := req.Body == nil || req.GetBody != nil
	for n := 1; ; n++ {
		resp, err := t.next.RoundTrip(req)
		transient := err != nil && netutil.Classify(err).Retry
		if err == nil && netutil.RetryableStatus(resp.StatusCode) {
			transient = true
		}
		if !transient || !replayable || n > t.retries {
			return resp, err
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(netutil.Backoff(t.backoff, n, 5*time.Second)):
		}

		if req.GetBody != nil {
			body, gerr := req.GetBody()
			if gerr != nil {
				return nil, gerr
			}
			req = req.Clone(req.Context())
			req.Body = body
		}
	}
}
