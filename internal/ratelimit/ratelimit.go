// Package ratelimit implements fixed (non-sliding) per-minute request
// counters keyed by an arbitrary string (IP address or sender address), as
// specified for the admission pipeline's IP and sender rate limits. This is
// deliberately not the token-bucket limiter the carrier codebase ships for
// its own HTTP layer (golang.org/x/time/rate): the gateway's rate limiter
// resets its whole window every 60 seconds rather than leaking tokens
// continuously, matching the reference middleware's fixed-window design.
package ratelimit

import (
	"sync"
	"time"
)

const window = 60 * time.Second

type bucket struct {
	count       int
	windowStart time.Time
}

// Limiter is a mutex-protected map of fixed per-minute windows, one per key.
type Limiter struct {
	limit int

	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// New returns a Limiter allowing up to limit requests per key per 60s
// window.
func New(limit int) *Limiter {
	return &Limiter{limit: limit, buckets: make(map[string]*bucket), now: time.Now}
}

// Allow reports whether a request for key is permitted under the current
// window, incrementing the window's counter if so. If now - window_start
// >= 60s, the window resets before the check.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{windowStart: now}
		l.buckets[key] = b
	}
	if now.Sub(b.windowStart) >= window {
		b.windowStart = now
		b.count = 0
	}
	if b.count < l.limit {
		b.count++
		return true
	}
	return false
}
