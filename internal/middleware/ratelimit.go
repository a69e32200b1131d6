package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

type window struct {
	count    int
	resetsAt time.Time
}

// RateLimiter provides in-memory fixed-window rate limiting keyed by client IP.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per period per key.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
	}
}

// Allow reports whether the key is still within its window's allowance.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[key]
	if !ok || now.After(w.resetsAt) {
		rl.windows[key] = &window{count: 1, resetsAt: now.Add(rl.period)}
		return true
	}
	w.count++
	return w.count <= rl.limit
}

// StartCleanup evicts expired windows periodically until ctx is canceled.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(rl.period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, w := range rl.windows {
		if now.After(w.resetsAt) {
			delete(rl.windows, key)
		}
	}
}

// Limit returns middleware that rejects requests over the per-IP limit.
func Limit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(RealIP(r)) {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
