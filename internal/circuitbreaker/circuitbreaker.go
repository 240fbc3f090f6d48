package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/onnwee/minimonday/backend/internal/logger"
	"github.com/onnwee/minimonday/backend/internal/metrics"
)

var (
	// ErrCircuitOpen is returned when the circuit breaker is open and the
	// operation was not invoked.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards one downstream endpoint. Failures are counted inside
// a sliding window; reaching the threshold opens the circuit.
type CircuitBreaker struct {
	mu                   sync.Mutex
	state                State
	failureTimestamps    []time.Time
	halfOpenSuccessCount int
	lastFailureTime      time.Time
	name                 string
	log                  *slog.Logger

	// Configuration
	failureThreshold int
	successThreshold int
	resetTimeout     time.Duration
	windowSize       time.Duration
	now              func() time.Time
	onTrip           func(name string, lastErr error)
	isFailure        func(error) bool
}

// Config holds circuit breaker configuration
type Config struct {
	Name             string
	FailureThreshold int           // Failures inside WindowSize before opening
	SuccessThreshold int           // Number of successes needed to close from half-open
	ResetTimeout     time.Duration // Time to wait before trying half-open
	WindowSize       time.Duration // Failures older than this are forgotten
	Now              func() time.Time
	// OnTrip is called (outside the lock) each time the circuit opens.
	OnTrip func(name string, lastErr error)
	// IsFailure decides whether an error counts against the breaker.
	// Defaults to DefaultIsFailure.
	IsFailure func(error) bool
}

// httpStatusError is implemented by errors that carry an HTTP status code.
type httpStatusError interface {
	error
	HTTPStatus() int
}

// DefaultIsFailure counts every error except cancellations by the caller and
// errors carrying a 4xx status that only describes the request itself, such
// as a bad range or a missing tab. Auth failures, 408 and 429 still count
// since they affect every call to the endpoint.
func DefaultIsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se httpStatusError
	if errors.As(err, &se) {
		switch code := se.HTTPStatus(); code {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		default:
			return code < 400 || code >= 500
		}
	}
	return true
}

// Snapshot is a point-in-time view of a breaker, used by admin endpoints.
type Snapshot struct {
	Name             string    `json:"name"`
	State            string    `json:"state"`
	FailuresInWindow int       `json:"failuresInWindow"`
	HalfOpenSuccess  int       `json:"halfOpenSuccesses"`
	LastFailure      time.Time `json:"lastFailure,omitempty"`
}

func (cfg Config) withDefaults() Config {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = DefaultIsFailure
	}
	return cfg
}

// New creates a new circuit breaker
func New(cfg Config) *CircuitBreaker {
	cfg = cfg.withDefaults()

	cb := &CircuitBreaker{
		state:            StateClosed,
		name:             cfg.Name,
		log:              logger.WithComponent("circuitbreaker").With("breaker", cfg.Name),
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		resetTimeout:     cfg.ResetTimeout,
		windowSize:       cfg.WindowSize,
		now:              cfg.Now,
		onTrip:           cfg.OnTrip,
		isFailure:        cfg.IsFailure,
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(float64(StateClosed))

	return cb
}

// Name returns the endpoint identifier the breaker guards.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn if the breaker allows it. The error from fn is returned
// unchanged after being recorded; ErrCircuitOpen is returned without calling
// fn while the circuit is open. Errors rejected by IsFailure are recorded as
// successes since the endpoint did answer.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		metrics.CircuitBreakerRejections.WithLabelValues(cb.name).Inc()
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil && cb.isFailure(err) {
		cb.recordFailure(err)
		return err
	}

	cb.recordSuccess()
	return err
}

// Do is Execute for operations that produce a value.
func Do[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var out T
	err := cb.Execute(func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// allow reports whether a call may proceed, moving Open to HalfOpen once the
// reset timeout has elapsed.
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) >= cb.resetTimeout {
			cb.setState(StateHalfOpen)
			cb.halfOpenSuccessCount = 0
			return true
		}
		return false
	default:
		return false
	}
}

// recordFailure records a failure
func (cb *CircuitBreaker) recordFailure(err error) {
	cb.mu.Lock()
	now := cb.now()
	tripped := false

	switch cb.state {
	case StateClosed:
		cb.failureTimestamps = append(cb.pruneLocked(now), now)
		if len(cb.failureTimestamps) >= cb.failureThreshold {
			cb.lastFailureTime = now
			cb.setState(StateOpen)
			tripped = true
		}
	case StateHalfOpen:
		cb.lastFailureTime = now
		cb.failureTimestamps = append(cb.pruneLocked(now), now)
		cb.halfOpenSuccessCount = 0
		cb.setState(StateOpen)
		tripped = true
	case StateOpen:
		// a call admitted just before another caller tripped the circuit
		cb.lastFailureTime = now
	}
	cb.mu.Unlock()

	if tripped {
		metrics.CircuitBreakerTrips.WithLabelValues(cb.name).Inc()
		cb.log.Warn("circuit opened", "error", err, "reset_timeout", cb.resetTimeout)
		if cb.onTrip != nil {
			cb.onTrip(cb.name, err)
		}
	}
}

// recordSuccess records a success
func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateHalfOpen {
		return
	}
	cb.halfOpenSuccessCount++
	if cb.halfOpenSuccessCount >= cb.successThreshold {
		cb.failureTimestamps = nil
		cb.halfOpenSuccessCount = 0
		cb.setState(StateClosed)
		cb.log.Info("circuit closed")
	}
}

// pruneLocked drops failures that fell out of the window; caller holds cb.mu.
func (cb *CircuitBreaker) pruneLocked(now time.Time) []time.Time {
	cutoff := now.Add(-cb.windowSize)
	i := 0
	for i < len(cb.failureTimestamps) && cb.failureTimestamps[i].Before(cutoff) {
		i++
	}
	return cb.failureTimestamps[i:]
}

// setState switches state and publishes it; caller holds cb.mu.
func (cb *CircuitBreaker) setState(s State) {
	if cb.state != s {
		cb.log.Debug("state transition", "from", cb.state.String(), "to", s.String())
	}
	cb.state = s
	metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(float64(s))
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns the breaker's current counters.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Snapshot{
		Name:             cb.name,
		State:            cb.state.String(),
		FailuresInWindow: len(cb.pruneLocked(cb.now())),
		HalfOpenSuccess:  cb.halfOpenSuccessCount,
		LastFailure:      cb.lastFailureTime,
	}
}

// Reset forces the breaker back to closed and forgets its failure history.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureTimestamps = nil
	cb.halfOpenSuccessCount = 0
	cb.lastFailureTime = time.Time{}
	cb.setState(StateClosed)
}
