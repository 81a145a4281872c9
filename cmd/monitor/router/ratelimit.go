package router

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hargaemas/gold-monitor/pkg/httpx"
)

// RateLimiter implements a per-client sliding-window request limit.
// Clients are identified by IP, honoring X-Forwarded-For and X-Real-IP
// when present.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	window time.Duration
	max    int
	now    func() time.Time
}

// NewRateLimiter allows up to max requests per client within window.
func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		hits:   make(map[string][]time.Time),
		window: window,
		max:    max,
		now:    time.Now,
	}
}

// Allow records a hit for client and reports whether it is within the
// limit.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	recent := rl.hits[client][:0]
	for _, hit := range rl.hits[client] {
		if hit.After(cutoff) {
			recent = append(recent, hit)
		}
	}

	if len(recent) >= rl.max {
		rl.hits[client] = recent
		return false
	}

	rl.hits[client] = append(recent, now)
	return true
}

// Middleware enforces the limit, responding 429 with a Retry-After
// header when exceeded.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			httpx.WriteErrorMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup drops clients whose every hit is outside the window. Run it
// periodically to bound memory on long-lived processes.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for client, hits := range rl.hits {
		live := false
		for _, hit := range hits {
			if hit.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(rl.hits, client)
		}
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First address is the originating client.
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
