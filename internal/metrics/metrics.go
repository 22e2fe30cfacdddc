// Package metrics implements the process-wide atomic counters described for
// the gateway's observability surface: lock-free increments with a
// point-in-time JSON snapshot, modeled directly on the flat-counters design
// used by the reference implementation's metrics module (relaxed ordering
// is acceptable; the snapshot has no cross-counter consistency guarantee).
package metrics

import (
	"sync/atomic"
	"time"
)

// ProviderLabel identifies one of the two closed-set provider breakdowns.
type ProviderLabel string

const (
	ProviderSMSMMS ProviderLabel = "sms-mms"
	ProviderEmail  ProviderLabel = "email"
)

// providerCounters holds the per-provider breakdown required by the
// registry: attempts/success/rate_limited/error/breaker_transitions.
type providerCounters struct {
	attempts           atomic.Int64
	success            atomic.Int64
	rateLimited        atomic.Int64
	errorCount         atomic.Int64
	breakerTransitions atomic.Int64
}

// Registry is a process-wide, lock-free metrics holder. It is created once
// at startup and passed through the application as an explicit dependency
// (never a package-level global), so tests can construct independent
// instances.
type Registry struct {
	rateLimited        atomic.Int64
	breakerOpen        atomic.Int64
	breakerTransitions atomic.Int64

	dispatchAttempts    atomic.Int64
	dispatchSuccess     atomic.Int64
	dispatchRateLimited atomic.Int64
	dispatchError       atomic.Int64
	dispatchQueueDropped atomic.Int64

	workerClaimed    atomic.Int64
	workerProcessed  atomic.Int64
	workerError      atomic.Int64
	workerDeadLetter atomic.Int64
	workerLatencyTotalUs atomic.Int64
	workerLatencyMaxUs   atomic.Int64

	invalidRouting atomic.Int64

	conversationsCreated  atomic.Int64
	conversationsReused   atomic.Int64
	conversationsFailures atomic.Int64

	inboundStoreFallback atomic.Int64

	sms   providerCounters
	email providerCounters
}

// New returns a fresh, zeroed Registry.
func New() *Registry { return &Registry{} }

func (r *Registry) provider(label ProviderLabel) *providerCounters {
	if label == ProviderSMSMMS {
		return &r.sms
	}
	return &r.email
}

// RecordRateLimited increments the global rate-limited counter.
func (r *Registry) RecordRateLimited() { r.rateLimited.Add(1) }

// RecordBreakerOpen increments the global breaker-open (short-circuit) counter.
func (r *Registry) RecordBreakerOpen() { r.breakerOpen.Add(1) }

// RecordBreakerTransition increments both the global and the per-provider
// breaker transition counters.
func (r *Registry) RecordBreakerTransition(label ProviderLabel) {
	r.breakerTransitions.Add(1)
	r.provider(label).breakerTransitions.Add(1)
}

// RecordInvalidRouting increments the invalid-routing counter (registry miss).
func (r *Registry) RecordInvalidRouting() { r.invalidRouting.Add(1) }

// RecordDispatchQueueDropped increments the outbound-queue backpressure counter.
func (r *Registry) RecordDispatchQueueDropped() { r.dispatchQueueDropped.Add(1) }

// RecordInboundStoreFallback increments the in-memory-fallback-used counter.
func (r *Registry) RecordInboundStoreFallback() { r.inboundStoreFallback.Add(1) }

// RecordDispatchAttempt records a dispatch attempt for the given provider label.
func (r *Registry) RecordDispatchAttempt(label ProviderLabel) {
	r.dispatchAttempts.Add(1)
	r.provider(label).attempts.Add(1)
}

// Outcome enumerates the possible provider dispatch outcomes.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeError       Outcome = "error"
	OutcomeTimeout     Outcome = "timeout"
)

// RecordDispatchOutcome updates the global and per-provider counters for a
// completed dispatch. Timeout is accounted as Error for counter purposes
// (both only differ in how the breaker classifies them; see
// internal/breaker).
func (r *Registry) RecordDispatchOutcome(label ProviderLabel, outcome Outcome) {
	pc := r.provider(label)
	switch outcome {
	case OutcomeSuccess:
		r.dispatchSuccess.Add(1)
		pc.success.Add(1)
	case OutcomeRateLimited:
		r.dispatchRateLimited.Add(1)
		pc.rateLimited.Add(1)
	default: // OutcomeError, OutcomeTimeout
		r.dispatchError.Add(1)
		pc.errorCount.Add(1)
	}
}

// RecordWorkerClaimed increments the inbound worker's claimed-event counter.
func (r *Registry) RecordWorkerClaimed(n int64) { r.workerClaimed.Add(n) }

// RecordWorkerProcessed increments the processed counter and folds the
// latency sample into the running total/max used for the snapshot's
// latency_avg_us / latency_max_us derivation.
func (r *Registry) RecordWorkerProcessed(latency time.Duration) {
	r.workerProcessed.Add(1)
	us := latency.Microseconds()
	r.workerLatencyTotalUs.Add(us)
	for {
		cur := r.workerLatencyMaxUs.Load()
		if us <= cur {
			return
		}
		if r.workerLatencyMaxUs.CompareAndSwap(cur, us) {
			return
		}
	}
}

// RecordWorkerError increments the worker error counter.
func (r *Registry) RecordWorkerError() { r.workerError.Add(1) }

// RecordWorkerDeadLetter increments the dead-letter counter.
func (r *Registry) RecordWorkerDeadLetter() { r.workerDeadLetter.Add(1) }

// RecordConversationCreated increments the created counter.
func (r *Registry) RecordConversationCreated() { r.conversationsCreated.Add(1) }

// RecordConversationReused increments the reused counter.
func (r *Registry) RecordConversationReused() { r.conversationsReused.Add(1) }

// RecordConversationFailure increments the failures counter.
func (r *Registry) RecordConversationFailure() { r.conversationsFailures.Add(1) }

// Snapshot is a point-in-time read of every counter. It carries no
// cross-counter consistency guarantee.
type Snapshot struct {
	TsUnixMs int64 `json:"ts_unix_ms"`

	RateLimited        int64 `json:"rate_limited"`
	BreakerOpen        int64 `json:"breaker_open"`
	BreakerTransitions int64 `json:"breaker_transitions"`

	DispatchAttempts     int64 `json:"dispatch_attempts"`
	DispatchSuccess      int64 `json:"dispatch_success"`
	DispatchRateLimited  int64 `json:"dispatch_rate_limited"`
	DispatchError        int64 `json:"dispatch_error"`
	DispatchQueueDropped int64 `json:"dispatch_queue_dropped"`

	WorkerClaimed        int64 `json:"worker_claimed"`
	WorkerProcessed      int64 `json:"worker_processed"`
	WorkerError          int64 `json:"worker_error"`
	WorkerDeadLetter     int64 `json:"worker_dead_letter"`
	WorkerLatencyAvgUs   int64 `json:"worker_latency_avg_us"`
	WorkerLatencyMaxUs   int64 `json:"worker_latency_max_us"`

	InvalidRouting int64 `json:"invalid_routing"`

	ConversationsCreated  int64 `json:"conversations_created"`
	ConversationsReused   int64 `json:"conversations_reused"`
	ConversationsFailures int64 `json:"conversations_failures"`

	InboundStoreFallback int64 `json:"inbound_store_fallback"`

	ProviderSMSMMS ProviderSnapshot `json:"provider_sms_mms"`
	ProviderEmail  ProviderSnapshot `json:"provider_email"`
}

// ProviderSnapshot is the per-provider breakdown for one channel label.
type ProviderSnapshot struct {
	Attempts           int64 `json:"attempts"`
	Success            int64 `json:"success"`
	RateLimited        int64 `json:"rate_limited"`
	Error              int64 `json:"error"`
	BreakerTransitions int64 `json:"breaker_transitions"`
}

func snapshotProvider(pc *providerCounters) ProviderSnapshot {
	return ProviderSnapshot{
		Attempts:           pc.attempts.Load(),
		Success:            pc.success.Load(),
		RateLimited:        pc.rateLimited.Load(),
		Error:              pc.errorCount.Load(),
		BreakerTransitions: pc.breakerTransitions.Load(),
	}
}

// Snapshot returns a point-in-time read of all counters.
func (r *Registry) Snapshot() Snapshot {
	processed := r.workerProcessed.Load()
	total := r.workerLatencyTotalUs.Load()
	avg := int64(0)
	if processed > 0 {
		avg = total / processed
	}
	return Snapshot{
		TsUnixMs: time.Now().UnixMilli(),

		RateLimited:        r.rateLimited.Load(),
		BreakerOpen:        r.breakerOpen.Load(),
		BreakerTransitions: r.breakerTransitions.Load(),

		DispatchAttempts:     r.dispatchAttempts.Load(),
		DispatchSuccess:      r.dispatchSuccess.Load(),
		DispatchRateLimited:  r.dispatchRateLimited.Load(),
		DispatchError:        r.dispatchError.Load(),
		DispatchQueueDropped: r.dispatchQueueDropped.Load(),

		WorkerClaimed:      r.workerClaimed.Load(),
		WorkerProcessed:    processed,
		WorkerError:        r.workerError.Load(),
		WorkerDeadLetter:   r.workerDeadLetter.Load(),
		WorkerLatencyAvgUs: avg,
		WorkerLatencyMaxUs: r.workerLatencyMaxUs.Load(),

		InvalidRouting: r.invalidRouting.Load(),

		ConversationsCreated:  r.conversationsCreated.Load(),
		ConversationsReused:   r.conversationsReused.Load(),
		ConversationsFailures: r.conversationsFailures.Load(),

		InboundStoreFallback: r.inboundStoreFallback.Load(),

		ProviderSMSMMS: snapshotProvider(&r.sms),
		ProviderEmail:  snapshotProvider(&r.email),
	}
}
