package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"component"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"component"},
	)

	CircuitBreakerWindowFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_window_failures",
			Help: "Failures currently inside the breaker's sliding window",
		},
		[]string{"component"},
	)

	CircuitBreakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_rejections_total",
			Help: "Calls rejected without invoking the operation because the circuit was open",
		},
		[]string{"component"},
	)

	// Retry metrics
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Operation attempts made by the retry policy",
		},
		[]string{"outcome"}, // outcome: success, retry, exhausted, permanent
	)

	RetryBackoffWaits = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retry_backoff_wait_seconds",
			Help:    "Backoff delay slept between attempts",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// Façade cache metrics
	FacadeCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facade_cache_hits_total",
			Help: "Total number of data-access cache hits",
		},
		[]string{"endpoint"},
	)

	FacadeCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facade_cache_misses_total",
			Help: "Total number of data-access cache misses",
		},
		[]string{"endpoint"},
	)

	FacadeFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facade_fetch_errors_total",
			Help: "Failed fetches through the data-access façade",
		},
		[]string{"endpoint", "kind"}, // kind: circuit_open, downstream
	)

	FacadeSharedFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facade_shared_fetches_total",
			Help: "Misses that joined an in-flight fetch instead of issuing their own",
		},
		[]string{"endpoint"},
	)

	CacheItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "facade_cache_items",
			Help: "Current number of items in the data-access cache",
		},
	)

	CacheEvictions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "facade_cache_evictions",
			Help: "Entries evicted from the data-access cache since start",
		},
	)

	// Google Sheets client metrics
	SheetsRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheets_requests_total",
			Help: "Total number of requests made to the Google Sheets API",
		},
		[]string{"operation", "status"}, // status: success, error, http status class
	)

	SheetsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheets_request_duration_seconds",
			Help:    "Duration of Google Sheets API requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)

	SheetsRateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sheets_rate_limit_waits_total",
			Help: "Total number of times the Sheets client waited for its rate limiter",
		},
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Metrics collection error tracking
	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Total number of errors during metrics collection",
		},
		[]string{"collector"},
	)
)
