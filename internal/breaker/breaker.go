// Package breaker implements a per-provider circuit breaker: Closed, Open,
// and HalfOpen states with a recovery timeout, grounded on the reference
// circuit-breaker middleware. Each provider owns an independent instance;
// a failure on one provider never affects another (isolation is enforced
// simply by never sharing an instance across labels — see internal/outbound).
package breaker

import (
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State string

const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half_open"
)

// Breaker is a mutex-protected circuit breaker. The zero value is not
// usable; construct with New.
type Breaker struct {
	failureThreshold int
	recoveryTimeout  time.Duration

	mu       sync.Mutex
	failures int
	state    State
	openedAt time.Time
}

// New returns a Closed breaker with the given failure threshold and
// recovery timeout.
func New(failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            Closed,
	}
}

// State returns the current state without mutating it (Open does not
// auto-transition to HalfOpen here; only BeforeRequest does).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// BeforeRequest is called by the dispatch callsite prior to invoking a
// provider. If the breaker is Open and the recovery timeout has elapsed, it
// transitions to HalfOpen and returns the new state; otherwise it returns
// the current state unchanged.
func (b *Breaker) BeforeRequest() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && !b.openedAt.IsZero() && time.Since(b.openedAt) >= b.recoveryTimeout {
		b.state = HalfOpen
	}
	return b.state
}

// RecordSuccess resets the failure count and closes the breaker.
func (b *Breaker) RecordSuccess() (transitioned bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	transitioned = b.state != Closed
	b.failures = 0
	b.state = Closed
	b.openedAt = time.Time{}
	return transitioned
}

// RecordFailure increments the failure count; once it reaches the
// threshold, the breaker opens and records the opening instant. Returns
// true if this call caused a Closed/HalfOpen -> Open transition.
func (b *Breaker) RecordFailure() (transitioned bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.failureThreshold && b.state != Open {
		b.state = Open
		b.openedAt = time.Now()
		return true
	}
	return false
}
