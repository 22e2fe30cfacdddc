// Package inbound implements the durable inbound event processing loop
// (§4.F): claim a batch of pending events, process each, and commit its
// outcome back to the store.
package inbound

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/metrics"
	"github.com/tbourn/go-chat-backend/internal/repo"
)

const idleSleep = 500 * time.Millisecond

// Config holds the worker's tunables, sourced from internal/config.
type Config struct {
	BatchSize         int
	ClaimTimeout      time.Duration
	MaxRetries        int
	BackoffBaseMs     int64
	ReapInterval      time.Duration
	AttachmentSchema  repo.AttachmentSchemaVariant
}

// payload is the JSON shape stored in InboundEvent.Payload for both SMS/MMS
// and email webhooks; unrecognized fields are ignored.
type payload struct {
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
	Timestamp   string   `json:"timestamp"`
}

// Worker runs the cooperative claim/process/reap loop described in §4.F.
type Worker struct {
	db      *gorm.DB
	cfg     Config
	metrics *metrics.Registry
}

// New constructs a Worker.
func New(db *gorm.DB, cfg Config, reg *metrics.Registry) *Worker {
	return &Worker{db: db, cfg: cfg, metrics: reg}
}

// Run blocks until ctx is cancelled. An in-flight processOne is allowed to
// finish its current DB operation before the loop observes cancellation
// (§4.F "Cancellation").
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ids, err := repo.ClaimBatch(ctx, w.db, w.cfg.BatchSize)
		if err != nil {
			log.Error().Err(err).Msg("inbound worker: claim batch failed")
			w.sleep(ctx, idleSleep)
			continue
		}

		if len(ids) == 0 {
			w.sleep(ctx, idleSleep)
		} else {
			w.metrics.RecordWorkerClaimed(int64(len(ids)))
			for _, id := range ids {
				w.processAndCommit(ctx, id)
			}
		}

		select {
		case <-ticker.C:
			if err := repo.ReapStale(ctx, w.db, w.cfg.ClaimTimeout); err != nil {
				log.Error().Err(err).Msg("inbound worker: reap stale failed")
			}
		default:
		}
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (w *Worker) processAndCommit(ctx context.Context, id int64) {
	t0 := time.Now()
	err := w.processOne(ctx, id)
	if err == nil {
		if merr := repo.MarkProcessed(ctx, w.db, id); merr != nil {
			log.Error().Err(merr).Int64("event_id", id).Msg("inbound worker: mark processed failed")
			return
		}
		w.metrics.RecordWorkerProcessed(time.Since(t0))
		return
	}

	dead, merr := repo.MarkError(ctx, w.db, id, "process_error", err.Error(), w.cfg.MaxRetries, w.cfg.BackoffBaseMs)
	if merr != nil {
		log.Error().Err(merr).Int64("event_id", id).Msg("inbound worker: mark error failed")
		return
	}
	if dead {
		w.metrics.RecordWorkerDeadLetter()
		log.Warn().Int64("event_id", id).Err(err).Msg("inbound worker: event dead-lettered")
	} else {
		w.metrics.RecordWorkerError()
	}
}

// processOne reads the event, decodes its payload, and persists the
// resulting inbound message via the shared message-persistence path (§4.D).
func (w *Worker) processOne(ctx context.Context, id int64) error {
	ev, err := repo.FetchEvent(ctx, w.db, id)
	if err != nil {
		return err
	}
	if ev == nil {
		return nil
	}

	var p payload
	if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
		return err
	}

	sentAt := time.Now().UTC()
	if p.Timestamp != "" {
		if parsed, perr := time.Parse(time.RFC3339, p.Timestamp); perr == nil {
			sentAt = parsed
		}
	}
	receivedAt := time.Now().UTC()

	_, _, err = repo.InsertMessage(ctx, w.db, repo.InsertMessageParams{
		Direction:      string(domain.DirectionInbound),
		Channel:        ev.Channel,
		From:           ev.FromAddr,
		To:             ev.ToAddr,
		Body:           p.Body,
		Attachments:    p.Attachments,
		SentAt:         sentAt,
		ReceivedAt:     &receivedAt,
		ProviderID:     providerIDOf(ev.ProviderMessageID),
		AttachmentMode: w.cfg.AttachmentSchema,
		Metrics:        w.metrics,
	})
	return err
}

func providerIDOf(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
