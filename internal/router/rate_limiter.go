package router

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter implements per-connection rate limiting
// ARCHITECTURAL DISCOVERY: Per-connection token buckets with explicit removal
// on disconnect prevents memory leaks without a cleanup sweep
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*rate.Limiter
}

// NewRateLimiter allows eventsPerMinute events per connection, with a full
// minute's budget available as burst. A non-positive value disables limiting.
func NewRateLimiter(eventsPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		limit:   rate.Inf,
		clients: make(map[string]*rate.Limiter),
	}
	if eventsPerMinute > 0 {
		rl.limit = rate.Every(time.Minute / time.Duration(eventsPerMinute))
		rl.burst = eventsPerMinute
	}
	return rl
}

// Allow reports whether the connection may send one more event now
func (rl *RateLimiter) Allow(connID string) bool {
	rl.mu.Lock()
	limiter, exists := rl.clients[connID]
	if !exists {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.clients[connID] = limiter
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

// Remove forgets a connection's bucket
func (rl *RateLimiter) Remove(connID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.clients, connID)
}

// Len returns the number of tracked connections
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}
