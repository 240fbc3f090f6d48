package config

import (
	"os"
	"strings"
	"time"

	"github.com/onnwee/minimonday/backend/internal/utils"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	CacheBackendLRU       = "lru"
	CacheBackendRistretto = "ristretto"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	// Data-access hardening (resilient façade)
	PerfHardening           bool          // enable cache + retry + circuit breaker in front of Sheets
	SingleFlight            bool          // deduplicate concurrent misses for the same cache key
	CacheBackend            string        // lru or ristretto
	CacheMaxEntries         int           // maximum number of cached query results
	CacheTTL                time.Duration // default time-to-live for cached results
	BreakerFailureThreshold int           // failures inside the window before opening
	BreakerResetTimeout     time.Duration // time spent open before a half-open trial call
	BreakerSuccessThreshold int           // half-open successes needed to close
	BreakerWindow           time.Duration // sliding window for counting failures
	RetryMaxRetries         int
	RetryInitialDelay       time.Duration
	RetryMaxDelay           time.Duration
	RetryBackoffMultiplier  float64
	// Google Sheets backend
	SpreadsheetID             string
	SheetsBaseURL             string
	SheetsRPS                 float64 // client-side request rate towards the Sheets API
	SheetsBurst               int
	GoogleServiceAccountEmail string
	GooglePrivateKey          string
	HTTPTimeout               time.Duration
	UserAgent                 string
	LogHTTPRetries            bool
	// API server
	Port                 string
	AdminAPIToken        string
	RateLimitGlobal      float64  // requests per second globally
	RateLimitGlobalBurst int      // burst size for global rate limit
	RateLimitPerIP       float64  // requests per second per IP
	RateLimitPerIPBurst  int      // burst size for per-IP rate limit
	EnableRateLimit      bool     // enable rate limiting middleware
	CORSAllowedOrigins   []string // allowed CORS origins
	MetricsInterval      time.Duration
	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		PerfHardening:           utils.GetEnvAsBool("PERF_HARDENING", false),
		SingleFlight:            utils.GetEnvAsBool("SINGLE_FLIGHT", false),
		CacheBackend:            strings.ToLower(utils.GetEnvAsString("CACHE_BACKEND", CacheBackendLRU)),
		CacheMaxEntries:         utils.GetEnvAsInt("CACHE_MAX_ENTRIES", 100),
		CacheTTL:                utils.GetEnvAsMillis("CACHE_TTL_MS", 30000),
		BreakerFailureThreshold: utils.GetEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerResetTimeout:     utils.GetEnvAsMillis("BREAKER_RESET_TIMEOUT_MS", 60000),
		BreakerSuccessThreshold: utils.GetEnvAsInt("BREAKER_SUCCESS_THRESHOLD", 2),
		BreakerWindow:           utils.GetEnvAsMillis("BREAKER_WINDOW_MS", 30000),
		RetryMaxRetries:         utils.GetEnvAsInt("RETRY_MAX_RETRIES", 3),
		RetryInitialDelay:       utils.GetEnvAsMillis("RETRY_INITIAL_DELAY_MS", 1000),
		RetryMaxDelay:           utils.GetEnvAsMillis("RETRY_MAX_DELAY_MS", 30000),
		RetryBackoffMultiplier:  utils.GetEnvAsFloat("RETRY_BACKOFF_MULTIPLIER", 2),
		// Sheets API quota is 60 read requests per minute per user
		SpreadsheetID:             strings.TrimSpace(os.Getenv("SHEETS_SPREADSHEET_ID")),
		SheetsBaseURL:             strings.TrimRight(utils.GetEnvAsString("SHEETS_BASE_URL", "https://sheets.googleapis.com"), "/"),
		SheetsRPS:                 utils.GetEnvAsFloat("SHEETS_RPS", 1.0),
		SheetsBurst:               utils.GetEnvAsInt("SHEETS_BURST", 5),
		GoogleServiceAccountEmail: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_EMAIL")),
		GooglePrivateKey:          normalizePrivateKey(os.Getenv("GOOGLE_PRIVATE_KEY")),
		HTTPTimeout:               utils.GetEnvAsMillis("HTTP_TIMEOUT_MS", 15000),
		UserAgent:                 utils.GetEnvAsString("HTTP_USER_AGENT", "minimonday/0.1"),
		LogHTTPRetries:            utils.GetEnvAsBool("LOG_HTTP_RETRIES", false),
		Port:                      utils.GetEnvAsString("PORT", "8000"),
		AdminAPIToken:             strings.TrimSpace(os.Getenv("ADMIN_API_TOKEN")),
		RateLimitGlobal:           utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst:      utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:            utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:       utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:           utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		CORSAllowedOrigins:        utils.GetEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}, ","),
		MetricsInterval:           utils.GetEnvAsMillis("METRICS_INTERVAL_MS", 15000),
		// Observability settings
		LogLevel:          strings.ToLower(utils.GetEnvAsString("LOG_LEVEL", "info")),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.CacheBackend != CacheBackendRistretto {
		cached.CacheBackend = CacheBackendLRU
	}
	if cached.SentryEnvironment == "" {
		if env := os.Getenv("ENV"); env != "" {
			cached.SentryEnvironment = env
		} else {
			cached.SentryEnvironment = "development"
		}
	}
	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }

// SheetsCredentialsConfigured reports whether a service account is available.
// Without one the Sheets client is built unauthenticated, which only works
// against public sheets or a local stub.
func (c *Config) SheetsCredentialsConfigured() bool {
	return c.GoogleServiceAccountEmail != "" && c.GooglePrivateKey != ""
}

// normalizePrivateKey turns the escaped "\n" sequences that PEM keys pick up
// in .env files back into real newlines.
func normalizePrivateKey(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, `"`)
	return strings.ReplaceAll(raw, `\n`, "\n")
}
