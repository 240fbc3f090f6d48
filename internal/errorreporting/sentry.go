package errorreporting

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

// PII patterns to scrub from error messages
var piiPatterns = []*regexp.Regexp{
	// PEM blocks (service-account private keys)
	regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`),
	// Email addresses, including service-account identities
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	// Google OAuth access tokens
	regexp.MustCompile(`ya29\.[a-zA-Z0-9._-]+`),
	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret)["\s:=]+[a-zA-Z0-9_-]{16,}`),
	// IP addresses
	regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
}

// Options configures the Sentry client.
type Options struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
}

var enabled atomic.Bool

// Init initializes Sentry error reporting. An empty DSN leaves reporting off.
func Init(opts Options) error {
	if opts.DSN == "" {
		return nil
	}
	if err := ValidateDSN(opts.DSN); err != nil {
		return err
	}

	release := opts.Release
	if release == "" {
		release = getRelease()
	}
	sampleRate := opts.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          release,
		SampleRate:       sampleRate,
		BeforeSend:       beforeSend,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	enabled.Store(true)
	return nil
}

// getRelease returns the release version from environment or default
func getRelease() string {
	if release := os.Getenv("SENTRY_RELEASE"); release != "" {
		return release
	}
	if version := os.Getenv("SERVICE_VERSION"); version != "" {
		return version
	}
	return "dev"
}

// beforeSend scrubs PII and strips credentials before events leave the process.
func beforeSend(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	for i := range event.Exception {
		event.Exception[i].Value = scrubPII(event.Exception[i].Value)
	}

	if event.Message != "" {
		event.Message = scrubPII(event.Message)
	}

	for key, value := range event.Extra {
		if str, ok := value.(string); ok {
			event.Extra[key] = scrubPII(str)
		}
	}

	if event.Request != nil {
		if event.Request.Headers != nil {
			delete(event.Request.Headers, "Authorization")
			delete(event.Request.Headers, "Cookie")
			delete(event.Request.Headers, "X-Api-Key")
		}
		// Query strings may carry admin tokens
		event.Request.QueryString = ""
	}

	return event
}

func scrubPII(text string) string {
	result := text
	for _, pattern := range piiPatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// CaptureError captures an error and sends it to Sentry
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CaptureErrorWithContext captures an error with additional context
func CaptureErrorWithContext(err error, tags map[string]string, extras map[string]interface{}) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		// extras are scrubbed by beforeSend
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// CaptureBreakerTrip reports a circuit opening for endpoint. It matches the
// circuitbreaker.Config.OnTrip signature.
func CaptureBreakerTrip(endpoint string, lastErr error) {
	if !enabled.Load() {
		return
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("circuit opened")
	}
	CaptureErrorWithContext(
		fmt.Errorf("circuit breaker %s opened: %w", endpoint, lastErr),
		map[string]string{"component": "circuitbreaker", "endpoint": endpoint},
		nil,
	)
}

// Flush waits for all events to be sent to Sentry
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// AddBreadcrumb adds a breadcrumb for debugging context
func AddBreadcrumb(category, message string, level sentry.Level) {
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     level,
		Timestamp: time.Now(),
	})
}

// ScrubPII exposes the PII scrubbing function for external use
func ScrubPII(text string) string {
	return scrubPII(text)
}

// IsSentryEnabled reports whether Init configured a client.
func IsSentryEnabled() bool {
	return enabled.Load()
}

// ValidateDSN checks if the provided DSN is valid
func ValidateDSN(dsn string) error {
	if !strings.HasPrefix(dsn, "https://") && !strings.HasPrefix(dsn, "http://") {
		return fmt.Errorf("invalid Sentry DSN format")
	}
	return nil
}
