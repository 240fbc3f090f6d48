package metrics

import (
	"context"
	"time"

	"github.com/onnwee/minimonday/backend/internal/logger"
)

// Snapshot is the point-in-time view of the data-access layer that the
// collector exports. Cache fields are absent when caching is disabled.
type Snapshot struct {
	CacheEnabled   bool
	CacheItems     int64
	CacheEvictions uint64
	Breakers       []BreakerSnapshot
}

// BreakerSnapshot carries the per-endpoint breaker figures.
type BreakerSnapshot struct {
	Name             string
	State            int
	FailuresInWindow int
}

// SnapshotFunc produces a Snapshot.
type SnapshotFunc func(ctx context.Context) (Snapshot, error)

// Collector periodically collects and updates Prometheus gauges that are not
// maintained on the request path.
type Collector struct {
	source   SnapshotFunc
	interval time.Duration
	stop     chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source SnapshotFunc, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the metrics collection loop. It blocks until Stop is called or
// ctx is done.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect(ctx)

	for {
		select {
		case <-ticker.C:
			c.Collect(ctx)
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector
func (c *Collector) Stop() {
	close(c.stop)
}

// Collect runs a single collection pass.
func (c *Collector) Collect(ctx context.Context) {
	snap, err := c.source(ctx)
	if err != nil {
		logger.Warn("metrics snapshot failed", "error", err)
		MetricsCollectionErrors.WithLabelValues("facade").Inc()
		// Signal stale data
		CacheItems.Set(-1)
		return
	}

	if snap.CacheEnabled {
		CacheItems.Set(float64(snap.CacheItems))
		CacheEvictions.Set(float64(snap.CacheEvictions))
	} else {
		CacheItems.Set(0)
		CacheEvictions.Set(0)
	}

	for _, b := range snap.Breakers {
		CircuitBreakerState.WithLabelValues(b.Name).Set(float64(b.State))
		CircuitBreakerWindowFailures.WithLabelValues(b.Name).Set(float64(b.FailuresInWindow))
	}
}
