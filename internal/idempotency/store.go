// Package idempotency implements the process-local, TTL-evicting
// recently-seen-key store used to suppress duplicate outbound dispatch when
// a client retries a POST with the same Idempotency-Key. This is distinct
// from message-level idempotency (internal/repo, keyed by
// conversation/direction/sent_at/body) and from the carrier codebase's own
// DB-backed request-replay table: the gateway's store never touches a
// database and is lost on restart by design (see SPEC_FULL.md §4.K).
package idempotency

import (
	"sync"
	"time"
)

// Store is a mutex-protected map of key -> first-seen time, with
// expired-entry eviction performed lazily on each call.
type Store struct {
	ttl time.Duration

	mu      sync.Mutex
	seen    map[string]time.Time
	now     func() time.Time
}

// New returns a Store with entries expiring after ttl (default 2h is the
// caller's responsibility to configure; this constructor takes no default).
func New(ttl time.Duration) *Store {
	return &Store{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

// SeenOrInsert evicts expired entries, then reports whether key is a fresh
// insert (true) or was already present and unexpired (false). A fresh
// insert updates the key's timestamp to now.
func (s *Store) SeenOrInsert(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)

	if ts, ok := s.seen[key]; ok && now.Sub(ts) < s.ttl {
		return false
	}
	s.seen[key] = now
	return true
}

func (s *Store) evictLocked(now time.Time) {
	for k, ts := range s.seen {
		if now.Sub(ts) >= s.ttl {
			delete(s.seen, k)
		}
	}
}

// Len reports the number of unexpired entries currently tracked (test/ops
// introspection only).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(s.now())
	return len(s.seen)
}
