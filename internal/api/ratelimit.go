package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter allows each client a fixed number of requests per window.
// Windows start at a client's first request after the previous one expired.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	maxRate int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type clientWindow struct {
	start time.Time
	used  int
}

// NewRateLimiter creates a limiter allowing maxRate requests per window.
// A maxRate of zero or less disables limiting.
func NewRateLimiter(maxRate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
		maxRate: maxRate,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Stop ends the background sweep.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// Allow spends one request for client and reports whether it was within
// the limit.
func (rl *RateLimiter) Allow(client string) bool {
	ok, _ := rl.take(client)
	return ok
}

// RetryAfter is the whole seconds until client's window resets, rounded up
// past the boundary. Zero when the client has no open window.
func (rl *RateLimiter) RetryAfter(client string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	w, ok := rl.clients[client]
	if !ok {
		return 0
	}
	return retrySeconds(rl.remaining(w))
}

// take is Allow plus the time left in the client's window.
func (rl *RateLimiter) take(client string) (bool, time.Duration) {
	if rl.maxRate <= 0 {
		return true, 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[client]
	if !ok || rl.remaining(w) <= 0 {
		w = &clientWindow{start: rl.now()}
		rl.clients[client] = w
	}
	if w.used >= rl.maxRate {
		return false, rl.remaining(w)
	}
	w.used++
	return true, rl.remaining(w)
}

// remaining is the time left in w. Caller holds mu.
func (rl *RateLimiter) remaining(w *clientWindow) time.Duration {
	return w.start.Add(rl.window).Sub(rl.now())
}

func retrySeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d/time.Second) + 1
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(max(2*rl.window, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.forgetIdle()
		}
	}
}

// forgetIdle drops clients whose window closed more than a window ago.
func (rl *RateLimiter) forgetIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, w := range rl.clients {
		if rl.remaining(w) < -rl.window {
			delete(rl.clients, client)
		}
	}
}

// clientIP is the first X-Forwarded-For hop, or the remote address host.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware rejects clients over their limit with 429 and a
// Retry-After header.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, left := rl.take(clientIP(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(left)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
