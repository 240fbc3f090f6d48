// Package facade is the single entry point for reads and writes against the
// remote store. The Resilient strategy layers a TTL cache, a per-endpoint
// circuit breaker and retry with backoff over every fetch; NoOp passes
// straight through.
package facade

import (
	"context"
	"fmt"
	"time"

	"github.com/onnwee/minimonday/backend/internal/cache"
	"github.com/onnwee/minimonday/backend/internal/circuitbreaker"
	"github.com/onnwee/minimonday/backend/internal/config"
	"github.com/onnwee/minimonday/backend/internal/errorreporting"
	"github.com/onnwee/minimonday/backend/internal/logger"
	"github.com/onnwee/minimonday/backend/internal/metrics"
	"github.com/onnwee/minimonday/backend/internal/retry"
)

// FetchFunc loads a value from the remote store.
type FetchFunc func(ctx context.Context) (any, error)

// Facade fronts every call to the remote store.
type Facade interface {
	// FetchThroughCache returns the cached value for key or loads it with
	// fetch, guarded by the breaker for endpoint.
	FetchThroughCache(ctx context.Context, endpoint, key string, fetch FetchFunc) (any, error)

	// Execute runs a write through the endpoint's breaker. Writes are
	// neither cached nor retried.
	Execute(ctx context.Context, endpoint string, op func(ctx context.Context) error) error

	// Invalidate drops cached entries whose key starts with prefix and
	// returns how many were removed (-1 when the whole cache was cleared).
	Invalidate(prefix string) int

	// ResetBreaker closes the breaker for endpoint; false if none exists.
	ResetBreaker(endpoint string) bool

	Stats() Stats
}

// Strategy names reported in Stats.
const (
	StrategyResilient = "resilient"
	StrategyNoOp      = "noop"
)

// Stats is a point-in-time view of the façade for admin endpoints.
type Stats struct {
	Strategy     string                    `json:"strategy"`
	SingleFlight bool                      `json:"singleFlight"`
	Cache        *cache.Stats              `json:"cache,omitempty"`
	Breakers     []circuitbreaker.Snapshot `json:"breakers"`
}

// Config selects and sizes the strategy.
type Config struct {
	PerfHardening bool
	SingleFlight  bool
	CacheBackend  string // config.CacheBackendLRU or config.CacheBackendRistretto
	CacheEntries  int
	CacheTTL      time.Duration
	Breaker       circuitbreaker.Config
	Retry         retry.Options
}

// ConfigFromApp maps environment configuration onto façade settings.
func ConfigFromApp(c *config.Config) Config {
	maxRetries := c.RetryMaxRetries
	if maxRetries == 0 {
		// RETRY_MAX_RETRIES=0 means no retries, not the library default
		maxRetries = -1
	}
	return Config{
		PerfHardening: c.PerfHardening,
		SingleFlight:  c.SingleFlight,
		CacheBackend:  c.CacheBackend,
		CacheEntries:  c.CacheMaxEntries,
		CacheTTL:      c.CacheTTL,
		Breaker: circuitbreaker.Config{
			FailureThreshold: c.BreakerFailureThreshold,
			SuccessThreshold: c.BreakerSuccessThreshold,
			ResetTimeout:     c.BreakerResetTimeout,
			WindowSize:       c.BreakerWindow,
			OnTrip:           errorreporting.CaptureBreakerTrip,
		},
		Retry: retry.Options{
			MaxRetries:        maxRetries,
			InitialDelay:      c.RetryInitialDelay,
			MaxDelay:          c.RetryMaxDelay,
			BackoffMultiplier: c.RetryBackoffMultiplier,
		},
	}
}

// New picks the strategy once, at startup.
func New(cfg Config) (Facade, error) {
	log := logger.WithComponent("facade")
	if !cfg.PerfHardening {
		log.Info("performance hardening disabled, using pass-through data access")
		return NoOp{}, nil
	}

	var c cache.Cache
	switch cfg.CacheBackend {
	case config.CacheBackendRistretto:
		rc, err := cache.NewRistretto(cfg.CacheEntries, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("create ristretto cache: %w", err)
		}
		c = rc
	default:
		c = cache.NewLRU(cache.Options{MaxEntries: cfg.CacheEntries, DefaultTTL: cfg.CacheTTL})
	}

	log.Info("performance hardening enabled",
		"cache_backend", cfg.CacheBackend,
		"cache_entries", cfg.CacheEntries,
		"cache_ttl", cfg.CacheTTL,
		"single_flight", cfg.SingleFlight,
	)
	return NewResilient(c, circuitbreaker.NewRegistry(cfg.Breaker), cfg.Retry, cfg.SingleFlight), nil
}

// Fetch is FetchThroughCache for callers that know the value's type.
func Fetch[T any](ctx context.Context, f Facade, endpoint, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := f.FetchThroughCache(ctx, endpoint, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("facade: cached value for %q is %T, want %T", key, v, zero)
	}
	return out, nil
}

// MetricsSource adapts Stats for the periodic metrics collector.
func MetricsSource(f Facade) metrics.SnapshotFunc {
	return func(ctx context.Context) (metrics.Snapshot, error) {
		st := f.Stats()
		snap := metrics.Snapshot{}
		if st.Cache != nil {
			snap.CacheEnabled = true
			snap.CacheItems = st.Cache.Items
			snap.CacheEvictions = st.Cache.Evictions
		}
		for _, b := range st.Breakers {
			snap.Breakers = append(snap.Breakers, metrics.BreakerSnapshot{
				Name:             b.Name,
				State:            int(stateCode(b.State)),
				FailuresInWindow: b.FailuresInWindow,
			})
		}
		return snap, nil
	}
}

func stateCode(name string) circuitbreaker.State {
	switch name {
	case circuitbreaker.StateOpen.String():
		return circuitbreaker.StateOpen
	case circuitbreaker.StateHalfOpen.String():
		return circuitbreaker.StateHalfOpen
	default:
		return circuitbreaker.StateClosed
	}
}
