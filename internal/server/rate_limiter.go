// Package server implements per-connection message throttling so a single
// noisy client cannot monopolize the hub.
package server

import (
	"math"
	"sync"
	"time"
)

// rateLimiter is a token bucket guarding one connection. It starts full at
// burst tokens, refills continuously at burst tokens per interval, and
// spends one token per inbound message.
type rateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	refill   float64 // tokens per second
	last     time.Time
	now      func() time.Time
}

func newRateLimiter(burst int, interval time.Duration) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	rl := &rateLimiter{
		tokens:   float64(burst),
		capacity: float64(burst),
		refill:   float64(burst) / interval.Seconds(),
		now:      time.Now,
	}
	rl.last = rl.now()
	return rl
}

// allow reports whether the connection may send one more message, consuming
// a token when it may.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if elapsed := now.Sub(rl.last).Seconds(); elapsed > 0 {
		rl.tokens = math.Min(rl.capacity, rl.tokens+elapsed*rl.refill)
	}
	rl.last = now

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}
