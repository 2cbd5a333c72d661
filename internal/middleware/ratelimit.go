package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jordanurbs/aicaptains-api/internal/config"
)

// UnknownClient is the sentinel identifier used when no forwarding header
// names the caller.
const UnknownClient = "unknown"

// RateLimiter bounds request volume per client identifier.
type RateLimiter interface {
	Allow(clientID string) bool
	AllowGlobal() bool
	Reset(clientID string)
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// WindowRateLimiter implements a fixed-window per-client counter: the first
// request in a window sets count=1 and the reset deadline, later requests in
// the same window increment and are denied once the count exceeds the limit.
type WindowRateLimiter struct {
	enabled bool
	mu      sync.Mutex
	entries map[string]*windowEntry
	max     int
	window  time.Duration
	global  *rate.Limiter
	logger  *logrus.Logger
	now     func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.Config, logger *logrus.Logger) *WindowRateLimiter {
	if !cfg.RateLimit.Enabled {
		return &WindowRateLimiter{enabled: false, now: time.Now}
	}

	rl := &WindowRateLimiter{
		enabled: true,
		entries: make(map[string]*windowEntry),
		max:     cfg.RateLimit.MaxRequests,
		window:  cfg.RateLimit.Window,
		logger:  logger,
		now:     time.Now,
	}

	if cfg.RateLimit.GlobalRPS > 0 {
		burst := cfg.RateLimit.GlobalBurst
		if burst <= 0 {
			burst = 1
		}
		rl.global = rate.NewLimiter(rate.Limit(cfg.RateLimit.GlobalRPS), burst)
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// Allow checks whether the client may make another request in the current window.
func (r *WindowRateLimiter) Allow(clientID string) bool {
	if !r.enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, exists := r.entries[clientID]
	if !exists || now.After(entry.resetAt) {
		r.entries[clientID] = &windowEntry{count: 1, resetAt: now.Add(r.window)}
		return true
	}

	entry.count++
	if entry.count > r.max {
		r.logger.WithFields(logrus.Fields{
			"client_id": clientID,
			"count":     entry.count,
		}).Warn("Rate limit exceeded")
		return false
	}

	return true
}

// AllowGlobal checks the process-wide throttle guarding the endpoint.
func (r *WindowRateLimiter) AllowGlobal() bool {
	if !r.enabled || r.global == nil {
		return true
	}
	return r.global.Allow()
}

// Reset clears the window for a client.
func (r *WindowRateLimiter) Reset(clientID string) {
	if !r.enabled {
		return
	}

	r.mu.Lock()
	delete(r.entries, clientID)
	r.mu.Unlock()
}

// cleanup removes elapsed windows so the map stays bounded by active clients.
func (r *WindowRateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		r.mu.Lock()
		now := r.now()
		for clientID, entry := range r.entries {
			if now.After(entry.resetAt) {
				delete(r.entries, clientID)
			}
		}
		r.mu.Unlock()
	}
}

// ClientID derives a client identifier from forwarding headers, in the order
// the edge proxies set them.
func ClientID(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			xff = xff[:i]
		}
		if ip := strings.TrimSpace(xff); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("Cf-Connecting-Ip"); ip != "" {
		return ip
	}
	return UnknownClient
}
