// Package retry re-invokes fallible operations with exponential backoff.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/onnwee/minimonday/backend/internal/logger"
	"github.com/onnwee/minimonday/backend/internal/metrics"
)

// Options configures Do. Zero fields take the defaults below.
type Options struct {
	// MaxRetries is the number of retries after the first attempt. Zero
	// selects DefaultMaxRetries; use -1 (any negative value) for no retries.
	MaxRetries        int
	InitialDelay      time.Duration // delay before the first retry (default 1s)
	MaxDelay          time.Duration // cap for any single delay (default 30s)
	BackoffMultiplier float64       // growth factor per retry (default 2)

	// Retryable decides whether an error is worth another attempt.
	// Defaults to DefaultRetryable.
	Retryable func(error) bool

	// Sleep waits between attempts. The default is a timer that returns
	// early with ctx.Err() when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry, when set, is told about every scheduled retry.
	OnRetry func(Attempt)
}

// Attempt describes a failed attempt that is about to be retried.
type Attempt struct {
	Index int           // zero-based index of the failed attempt
	Delay time.Duration // wait before the next attempt
	Err   error
}

// Defaults mirror the data-access layer's recognised configuration.
const (
	DefaultMaxRetries        = 3
	DefaultInitialDelay      = time.Second
	DefaultMaxDelay          = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

func (o Options) withDefaults() Options {
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	} else if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.BackoffMultiplier <= 0 {
		o.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if o.Retryable == nil {
		o.Retryable = DefaultRetryable
	}
	if o.Sleep == nil {
		o.Sleep = sleep
	}
	return o
}

// Delay returns the wait after the failed attempt with the given zero-based
// index: min(InitialDelay * BackoffMultiplier^index, MaxDelay).
func (o Options) Delay(index int) time.Duration {
	o = o.withDefaults()
	d := float64(o.InitialDelay) * math.Pow(o.BackoffMultiplier, float64(index))
	if d >= float64(o.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d) {
		return o.MaxDelay
	}
	return time.Duration(d)
}

// Do runs op until it succeeds, returns a non-retryable error, or the retry
// budget is spent. The last error is returned exactly as op produced it.
func Do(ctx context.Context, opts Options, op func(ctx context.Context) error) error {
	opts = opts.withDefaults()
	log := logger.WithComponent("retry")

	var err error
	for attempt := 0; ; attempt++ {
		if err = op(ctx); err == nil {
			metrics.RetryAttempts.WithLabelValues("success").Inc()
			return nil
		}
		if !opts.Retryable(err) {
			metrics.RetryAttempts.WithLabelValues("permanent").Inc()
			return err
		}
		if attempt >= opts.MaxRetries {
			metrics.RetryAttempts.WithLabelValues("exhausted").Inc()
			log.DebugContext(ctx, "retries exhausted", "attempts", attempt+1, "error", err)
			return err
		}

		delay := opts.Delay(attempt)
		metrics.RetryAttempts.WithLabelValues("retry").Inc()
		metrics.RetryBackoffWaits.Observe(delay.Seconds())
		log.DebugContext(ctx, "backing off", "attempt", attempt+1, "delay", delay, "error", err)
		if opts.OnRetry != nil {
			opts.OnRetry(Attempt{Index: attempt, Delay: delay, Err: err})
		}
		if serr := opts.Sleep(ctx, delay); serr != nil {
			// cancelled while waiting: the caller still sees the operation's error
			return err
		}
	}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, opts, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
