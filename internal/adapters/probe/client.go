// Package probe is a small HTTP client for black-box checks: bounded timeouts,
// a fixed number of attempts and no automatic redirect following
package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	perr "refguard/internal/platform/errors"
	"refguard/internal/platform/logger"
)

const (
	defaultTimeout   = 8 * time.Second
	defaultUA        = "refguard-check/1"
	defaultAttempts  = 3
	defaultRetryBase = 250 * time.Millisecond
	maxBackoff       = 5 * time.Second
)

// Options configures the Client
type Options struct {
	UserAgent string
	Timeout   time.Duration // per attempt

	// Attempts is the total number of tries for transport errors and 5xx responses
	Attempts  int
	RetryBase time.Duration

	// Transport overrides the round tripper (tests)
	Transport http.RoundTripper
}

// Response is what a probe observed. Body is never kept
type Response struct {
	Method   string
	URL      string
	Status   int
	Location string
	Header   http.Header
	Attempts int
	Latency  time.Duration
}

// Redirect reports whether the status is a 3xx
func (r Response) Redirect() bool { return r.Status >= 300 && r.Status < 400 }

// Client issues probe requests
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewClient creates a Client with defaults filled in
func NewClient(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Attempts <= 0 {
		o.Attempts = defaultAttempts
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	hc := &http.Client{
		Timeout:   o.Timeout,
		Transport: o.Transport,
		// every hop is asserted by the caller, never followed blindly
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	return &Client{
		http:  hc,
		opts:  o,
		log:   *logger.Named("probe"),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Get issues a GET without following redirects
func (c *Client) Get(ctx context.Context, url string) (Response, error) {
	return c.Do(ctx, http.MethodGet, url)
}

// Head issues a header-only probe. Servers that refuse HEAD get a GET whose body is discarded
func (c *Client) Head(ctx context.Context, url string) (Response, error) {
	r, err := c.Do(ctx, http.MethodHead, url)
	if err != nil {
		return r, err
	}
	if r.Status == http.StatusMethodNotAllowed || r.Status == http.StatusNotImplemented {
		c.log.Debug().Str("url", url).Int("status", r.Status).Msg("head refused; falling back to get")
		return c.Do(ctx, http.MethodGet, url)
	}
	return r, nil
}

// Do issues one logical request with bounded retries on transport errors and 5xx
func (c *Client) Do(ctx context.Context, method, url string) (Response, error) {
	out := Response{Method: method, URL: url}
	for attempt := 1; ; attempt++ {
		out.Attempts = attempt
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return out, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "probe new request %s", url)
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "*/*")

		start := c.now()
		resp, err := c.http.Do(req)
		out.Latency = c.now().Sub(start)

		if err != nil {
			if ctx.Err() != nil || attempt >= c.opts.Attempts {
				return out, perr.Wrapf(err, perr.ErrorCodeUnavailable, "probe %s %s failed after %d attempt(s)", method, url, attempt)
			}
			if werr := c.wait(ctx, attempt, "transport error", err); werr != nil {
				return out, werr
			}
			continue
		}

		_ = drainAndClose(resp.Body)
		out.Status = resp.StatusCode
		out.Location = resp.Header.Get("Location")
		out.Header = resp.Header

		c.log.Debug().
			Str("method", method).
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Dur("latency", out.Latency).
			Msg("probe response")

		if transient(resp.StatusCode) && attempt < c.opts.Attempts {
			if werr := c.wait(ctx, attempt, "transient status", nil); werr != nil {
				return out, werr
			}
			continue
		}
		return out, nil
	}
}

func (c *Client) wait(ctx context.Context, attempt int, why string, cause error) error {
	back := c.backoff(attempt)
	evt := c.log.Warn().Dur("retry_in", back).Int("attempt", attempt)
	if cause != nil {
		evt = evt.Err(cause)
	}
	evt.Msg("probe " + why + "; retrying")
	if err := c.sleep(ctx, back); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "probe cancelled while backing off")
	}
	return nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt-1)
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

func transient(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return true
	}
	return false
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 4096))
	return rc.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
