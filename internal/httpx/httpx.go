// Package httpx holds the outbound HTTP plumbing shared by API clients:
// a user-agent transport, typed status errors and attempt observers.
// It performs exactly one attempt per call; retries are layered on top.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/minimonday/backend/internal/logger"
)

// maxErrorBody bounds how much of a failed response is kept on StatusError.
const maxErrorBody = 4 << 10

// PreAttempt lets callers run logic (e.g., rate limiting) before the request; return an error to abort.
type PreAttempt func(ctx context.Context) error

// AttemptInfo describes a single attempt outcome.
type AttemptInfo struct {
	Method   string
	URL      string
	Status   int
	Err      error
	Duration time.Duration
}

// Observer callback to report attempt telemetry.
type Observer func(info AttemptInfo)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
	RetryAfter time.Duration // parsed Retry-After header, zero when absent
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// HTTPStatus exposes the status code to retry predicates.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// userAgentTransport stamps every outbound request with a fixed User-Agent.
type userAgentTransport struct {
	ua   string
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.ua)
	}
	return t.base.RoundTrip(req)
}

// WithUserAgent wraps base (http.DefaultTransport when nil).
func WithUserAgent(base http.RoundTripper, ua string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if ua == "" {
		return base
	}
	return &userAgentTransport{ua: ua, base: base}
}

// NewClient returns an http.Client with a timeout and User-Agent.
func NewClient(timeout time.Duration, ua string) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: WithUserAgent(nil, ua),
	}
}

// Do performs one request built by build. A non-2xx response is drained,
// closed and returned as *StatusError.
func Do(ctx context.Context, client *http.Client, build func(ctx context.Context) (*http.Request, error), pre PreAttempt, obs Observer) (*http.Response, error) {
	if pre != nil {
		if err := pre(ctx); err != nil {
			return nil, err
		}
	}
	req, err := build(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	info := AttemptInfo{Method: req.Method, URL: redact(req.URL.String()), Duration: time.Since(start), Err: err}
	if err != nil {
		if obs != nil {
			obs(info)
		}
		return nil, err
	}
	info.Status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		serr := &StatusError{
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			URL:        info.URL,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
		info.Err = serr
		if obs != nil {
			obs(info)
		}
		return nil, serr
	}

	if obs != nil {
		obs(info)
	}
	return resp, nil
}

// DoJSON performs one request and decodes a JSON body into out (skipped when nil).
func DoJSON(ctx context.Context, client *http.Client, build func(ctx context.Context) (*http.Request, error), pre PreAttempt, obs Observer, out any) error {
	resp, err := Do(ctx, client, build, pre, obs)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", resp.Request.URL.Path, err)
	}
	return nil
}

// ParseRetryAfter understands both delta-seconds and HTTP-date values.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// LogObserver logs every attempt at debug level, failures at warn.
func LogObserver(component string) Observer {
	log := logger.WithComponent(component)
	return func(info AttemptInfo) {
		if info.Err != nil {
			log.Warn("http attempt failed", "method", info.Method, "url", info.URL, "status", info.Status, "duration", info.Duration, "error", info.Err)
			return
		}
		log.Debug("http attempt", "method", info.Method, "url", info.URL, "status", info.Status, "duration", info.Duration)
	}
}

// redact drops query parameters such as API keys from logged URLs.
func redact(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
