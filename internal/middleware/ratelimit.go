package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/onnwee/minimonday/backend/internal/apierr"
)

// staleLimiterAge is how long an idle per-IP limiter is kept.
const staleLimiterAge = 3 * time.Minute

// RateLimiter provides rate limiting for the API.
type RateLimiter struct {
	global  *rate.Limiter
	perIP   map[string]*ipLimiter
	mu      sync.Mutex
	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once
	ipRate  rate.Limit
	ipBurst int
	now     func() time.Time
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter with a global and a per-IP token
// bucket. Rates are requests per second.
func NewRateLimiter(globalRate float64, globalBurst int, ipRate float64, ipBurst int) *RateLimiter {
	rl := &RateLimiter{
		global:  rate.NewLimiter(rate.Limit(globalRate), globalBurst),
		perIP:   make(map[string]*ipLimiter),
		cleanup: time.NewTicker(time.Minute),
		done:    make(chan struct{}),
		ipRate:  rate.Limit(ipRate),
		ipBurst: ipBurst,
		now:     time.Now,
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.perIP[ip]; ok {
		l.lastSeen = rl.now()
		return l.limiter
	}
	l := &ipLimiter{limiter: rate.NewLimiter(rl.ipRate, rl.ipBurst), lastSeen: rl.now()}
	rl.perIP[ip] = l
	return l.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	for {
		select {
		case <-rl.cleanup.C:
			rl.evictStale()
		case <-rl.done:
			return
		}
	}
}

// evictStale drops per-IP limiters idle for longer than staleLimiterAge.
func (rl *RateLimiter) evictStale() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for ip, l := range rl.perIP {
		if rl.now().Sub(l.lastSeen) > staleLimiterAge {
			delete(rl.perIP, ip)
			removed++
		}
	}
	return removed
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() {
		rl.cleanup.Stop()
		close(rl.done)
	})
}

// Limit returns a middleware handler that enforces rate limits.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.global.Allow() {
			w.Header().Set("Retry-After", retryAfterSeconds(rl.global.Limit()))
			apierr.WriteErrorWithContext(w, r, apierr.RateLimitGlobal())
			return
		}

		if !rl.getLimiter(clientIP(r)).Allow() {
			w.Header().Set("Retry-After", retryAfterSeconds(rl.ipRate))
			apierr.WriteErrorWithContext(w, r, apierr.RateLimitIP())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(limit rate.Limit) string {
	if limit <= 0 {
		return "60"
	}
	secs := int(1/float64(limit) + 0.999)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP extracts the client IP, honoring common proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
