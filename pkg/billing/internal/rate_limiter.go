package internal

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a fixed-window, per-client-IP limiter for webhook endpoints.
type RateLimiter struct {
	mu           sync.Mutex
	requests     map[string]*bucket
	limit        int
	window       time.Duration
	now          func() time.Time
	sinceCleanup int
	cleanupEvery int // sweep expired buckets every N calls
	maxBuckets   int // or as soon as the map grows past this size
}

type bucket struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter creates a new rate limiter with the specified limit and window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests:     make(map[string]*bucket),
		limit:        limit,
		window:       window,
		now:          time.Now,
		cleanupEvery: 100,
		maxBuckets:   1000,
	}
}

// Allow reports whether the client may make another request, and if not,
// how long until its window resets.
func (rl *RateLimiter) Allow(clientIP string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	rl.sinceCleanup++
	if rl.sinceCleanup >= rl.cleanupEvery || len(rl.requests) > rl.maxBuckets {
		rl.cleanupExpired(now)
		rl.sinceCleanup = 0
	}

	b, ok := rl.requests[clientIP]
	if !ok || !now.Before(b.resetAt) {
		rl.requests[clientIP] = &bucket{count: 1, resetAt: now.Add(rl.window)}
		return true, 0
	}
	if b.count >= rl.limit {
		return false, b.resetAt.Sub(now)
	}
	b.count++
	return true, 0
}

func (rl *RateLimiter) cleanupExpired(now time.Time) {
	for ip, b := range rl.requests {
		if !now.Before(b.resetAt) {
			delete(rl.requests, ip)
		}
	}
}

// Middleware wraps HTTP handler with rate limiting
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := rl.Allow(GetClientIP(r))
		if !allowed {
			seconds := int(retryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetClientIP extracts the client IP address from the request.
// Checks X-Forwarded-For header first (set by proxies/load balancers),
// then falls back to the host part of RemoteAddr.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
