package facade

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/onnwee/minimonday/backend/internal/cache"
	"github.com/onnwee/minimonday/backend/internal/circuitbreaker"
	"github.com/onnwee/minimonday/backend/internal/logger"
	"github.com/onnwee/minimonday/backend/internal/metrics"
	"github.com/onnwee/minimonday/backend/internal/retry"
	"github.com/onnwee/minimonday/backend/internal/tracing"
)

// Resilient reads through a cache; misses go through the endpoint's breaker
// and the retry policy. Only successful results are cached and a failure
// never falls back to stale data.
type Resilient struct {
	cache    cache.Cache
	breakers *circuitbreaker.Registry
	retry    retry.Options
	group    *singleflight.Group // nil unless single-flight is enabled
	log      *slog.Logger
}

// NewResilient wires a strategy around caller-owned collaborators.
func NewResilient(c cache.Cache, breakers *circuitbreaker.Registry, opts retry.Options, singleFlight bool) *Resilient {
	r := &Resilient{
		cache:    c,
		breakers: breakers,
		retry:    opts,
		log:      logger.WithComponent("facade"),
	}
	if singleFlight {
		r.group = &singleflight.Group{}
	}
	return r
}

func (r *Resilient) FetchThroughCache(ctx context.Context, endpoint, key string, fetch FetchFunc) (any, error) {
	ctx, span := tracing.StartSpanWith(ctx, "facade.fetch", map[string]string{"endpoint": endpoint})

	if v, ok := r.cache.Get(key); ok {
		metrics.FacadeCacheHits.WithLabelValues(endpoint).Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		tracing.EndSpan(span, nil)
		return v, nil
	}
	metrics.FacadeCacheMisses.WithLabelValues(endpoint).Inc()
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var (
		v   any
		err error
	)
	if r.group != nil {
		// the shared load outlives any single caller; each caller still
		// stops waiting when its own context ends
		ch := r.group.DoChan(endpoint+"\x00"+key, func() (any, error) {
			return r.load(context.WithoutCancel(ctx), endpoint, key, fetch)
		})
		select {
		case res := <-ch:
			v, err = res.Val, res.Err
			if res.Shared {
				metrics.FacadeSharedFetches.WithLabelValues(endpoint).Inc()
			}
		case <-ctx.Done():
			err = ctx.Err()
		}
	} else {
		v, err = r.load(ctx, endpoint, key, fetch)
	}

	tracing.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *Resilient) load(ctx context.Context, endpoint, key string, fetch FetchFunc) (any, error) {
	cb := r.breakers.Get(endpoint)
	v, err := circuitbreaker.Do(cb, func() (any, error) {
		return retry.DoValue[any](ctx, r.retry, fetch)
	})
	if err != nil {
		metrics.FacadeFetchErrors.WithLabelValues(endpoint, errorKind(err)).Inc()
		r.log.WarnContext(ctx, "fetch failed", "endpoint", endpoint, "key", key, "error", err)
		return nil, err
	}
	r.cache.Set(key, v, 0)
	return v, nil
}

func (r *Resilient) Execute(ctx context.Context, endpoint string, op func(ctx context.Context) error) error {
	ctx, span := tracing.StartSpanWith(ctx, "facade.execute", map[string]string{"endpoint": endpoint})
	err := r.breakers.Get(endpoint).Execute(func() error { return op(ctx) })
	if err != nil {
		metrics.FacadeFetchErrors.WithLabelValues(endpoint, errorKind(err)).Inc()
	}
	tracing.EndSpan(span, err)
	return err
}

func (r *Resilient) Invalidate(prefix string) int {
	if prefix == "" {
		r.cache.Clear()
		return -1
	}
	if pd, ok := r.cache.(cache.PrefixDeleter); ok {
		return pd.DeletePrefix(prefix)
	}
	// backends without key iteration can only be emptied
	r.cache.Clear()
	return -1
}

func (r *Resilient) ResetBreaker(endpoint string) bool {
	ok := r.breakers.Reset(endpoint)
	if ok {
		r.log.Info("circuit reset by operator", "endpoint", endpoint)
	}
	return ok
}

func (r *Resilient) Stats() Stats {
	cs := r.cache.Stats()
	return Stats{
		Strategy:     StrategyResilient,
		SingleFlight: r.group != nil,
		Cache:        &cs,
		Breakers:     r.breakers.Snapshots(),
	}
}

func errorKind(err error) string {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return "circuit_open"
	}
	return "downstream"
}
