// Package outbound implements the in-memory outbound dispatch worker (§4.I):
// a bounded queue fed by the API layer, consumed by a single goroutine that
// resolves the provider, checks its breaker, dispatches, and records the
// outcome.
package outbound

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/breaker"
	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/memstore"
	"github.com/tbourn/go-chat-backend/internal/metrics"
	"github.com/tbourn/go-chat-backend/internal/providers"
	"github.com/tbourn/go-chat-backend/internal/repo"
)

// Item is the unit of work the API layer enqueues for one outbound send
// (event_name ∈ {api.messages.sms, api.messages.email}).
type Item struct {
	EventName      string
	Type           string // payload "type" field: distinguishes sms vs mms
	From           string
	To             string
	Body           string
	Attachments    []string
	IdempotencyKey string
}

// Dispatcher owns the bounded queue and the provider registry/breakers used
// to drain it.
type Dispatcher struct {
	queue    chan Item
	registry *providers.Registry
	breakers map[string]*breaker.Breaker
	global   *breaker.Breaker
	metrics  *metrics.Registry

	faultsMu sync.RWMutex
	faults   map[string]providers.FaultConfig

	db             *gorm.DB
	attachmentMode repo.AttachmentSchemaVariant
	mem            *memstore.Store
}

// SetPersistence wires the durable store the dispatcher persists successfully
// dispatched messages into (spec.md's outbound data flow: "...provider
// dispatch -> breaker/metrics update -> message persistence -> upsert
// engine..."). db may be nil, in which case dispatch persists into mem
// instead (§9's in-memory fallback store, in-memory-only mode).
func (d *Dispatcher) SetPersistence(db *gorm.DB, mode repo.AttachmentSchemaVariant, mem *memstore.Store) {
	d.db = db
	d.attachmentMode = mode
	d.mem = mem
}

// SetGlobalBreaker wires a breaker that mirrors the aggregate health of
// outbound dispatch across all providers; the admission pipeline's global
// short-circuit middleware reads its state. Every Error/Timeout outcome, from
// any provider, feeds it in addition to that provider's own isolated breaker.
func (d *Dispatcher) SetGlobalBreaker(b *breaker.Breaker) { d.global = b }

// New constructs a Dispatcher with the given queue capacity. breakers and
// faults are keyed by provider label ("sms-mms", "email").
func New(capacity int, registry *providers.Registry, breakers map[string]*breaker.Breaker, faults map[string]providers.FaultConfig, reg *metrics.Registry) *Dispatcher {
	return &Dispatcher{
		queue:    make(chan Item, capacity),
		registry: registry,
		breakers: breakers,
		faults:   faults,
		metrics:  reg,
	}
}

// FaultsFor returns the fault-injection config currently configured for a
// provider label, used by the mock-config inspect endpoint.
func (d *Dispatcher) FaultsFor(label string) providers.FaultConfig {
	d.faultsMu.RLock()
	defer d.faultsMu.RUnlock()
	return d.faults[label]
}

// SetFaultsFor overrides the fault-injection config for a provider label,
// used by the mock-config override endpoint. Safe for concurrent use with
// Run's dispatch loop.
func (d *Dispatcher) SetFaultsFor(label string, cfg providers.FaultConfig) {
	d.faultsMu.Lock()
	defer d.faultsMu.Unlock()
	d.faults[label] = cfg
}

func (d *Dispatcher) faultsForLocked(label string) providers.FaultConfig {
	d.faultsMu.RLock()
	defer d.faultsMu.RUnlock()
	return d.faults[label]
}

// Enqueue offers an item to the bounded queue without blocking. If the
// queue is full, the item is dropped and dispatch_queue_dropped is
// incremented; this is the gateway's only backpressure signal for outbound
// sends (§5).
func (d *Dispatcher) Enqueue(item Item) (accepted bool) {
	select {
	case d.queue <- item:
		return true
	default:
		d.metrics.RecordDispatchQueueDropped()
		return false
	}
}

// Run drains the queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-d.queue:
			d.dispatchOne(item)
		}
	}
}

func (d *Dispatcher) dispatchOne(item Item) {
	channel := inferChannel(item)

	provider, ok := d.registry.Lookup(channel)
	if !ok {
		d.metrics.RecordInvalidRouting()
		log.Warn().Str("channel", channel).Msg("outbound dispatch: no provider registered")
		return
	}

	label := providerLabel(channel)
	brk := d.breakers[label]
	if brk != nil && brk.BeforeRequest() == breaker.Open {
		d.metrics.RecordBreakerOpen()
		return
	}

	msg := providers.OutboundMessage{
		Channel:        channel,
		From:           item.From,
		To:             item.To,
		Body:           item.Body,
		Attachments:    item.Attachments,
		IdempotencyKey: item.IdempotencyKey,
	}

	metricsLabel := metrics.ProviderLabel(label)
	d.metrics.RecordDispatchAttempt(metricsLabel)

	providerName, outcome := provider.Dispatch(msg, d.faultsForLocked(label))
	d.metrics.RecordDispatchOutcome(metricsLabel, mapOutcome(outcome))

	d.persist(item, channel, providerName)

	if brk != nil {
		var transitioned bool
		switch outcome {
		case providers.Success:
			transitioned = brk.RecordSuccess()
		case providers.Error, providers.Timeout:
			transitioned = brk.RecordFailure()
		case providers.RateLimited:
			// no-op per §4.H: RateLimited never feeds the breaker.
		}
		if transitioned {
			d.metrics.RecordBreakerTransition(metricsLabel)
		}
	}

	if d.global != nil {
		switch outcome {
		case providers.Success:
			d.global.RecordSuccess()
		case providers.Error, providers.Timeout:
			d.global.RecordFailure()
		}
	}
}

// persist records the outbound send as a Message and feeds the conversation
// upsert engine, regardless of provider outcome: the gateway accepted and
// attempted the send, so it owns a record of the attempt. Falls back to the
// in-memory store (§9) when db == nil.
func (d *Dispatcher) persist(item Item, channel, providerName string) {
	if d.db == nil {
		if d.mem != nil {
			now := time.Now().UTC()
			d.mem.InsertMessage(channel, string(domain.DirectionOutbound), item.From, item.To, item.Body, now, &now)
		}
		return
	}
	now := time.Now()
	_, _, err := repo.InsertMessage(context.Background(), d.db, repo.InsertMessageParams{
		Direction:      string(domain.DirectionOutbound),
		Channel:        channel,
		From:           item.From,
		To:             item.To,
		Body:           item.Body,
		Attachments:    item.Attachments,
		SentAt:         now,
		ReceivedAt:     &now,
		ProviderID:     providerName,
		AttachmentMode: d.attachmentMode,
		Metrics:        d.metrics,
	})
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("outbound dispatch: message persistence failed")
	}
}

func mapOutcome(o providers.Outcome) metrics.Outcome {
	switch o {
	case providers.Success:
		return metrics.OutcomeSuccess
	case providers.RateLimited:
		return metrics.OutcomeRateLimited
	case providers.Timeout:
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeError
	}
}

// inferChannel implements §4.I step 1: sms payloads with type == "mms"
// (case-insensitive) route to mms; email events always route to email.
func inferChannel(item Item) string {
	if item.EventName == "api.messages.email" {
		return "email"
	}
	if strings.EqualFold(item.Type, "mms") {
		return "mms"
	}
	return "sms"
}

// providerLabel maps a channel to its breaker/metrics label: sms and mms
// share "sms-mms", email is separate.
func providerLabel(channel string) string {
	if channel == "email" {
		return "email"
	}
	return "sms-mms"
}
