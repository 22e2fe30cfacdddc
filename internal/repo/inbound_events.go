// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the durable inbound event store
// (§4.E): intake dedup, SKIP LOCKED batch claiming, retry backoff, dead
// lettering, and stale-claim reaping.
package repo

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

// InsertInboundEvent inserts a pending event. A conflicting
// (channel, provider_message_id) pair is a silent no-op (at-least-once
// delivery dedup at intake).
func InsertInboundEvent(ctx context.Context, db *gorm.DB, channel, from, to string, providerMessageID *string, payload string) error {
	now := time.Now().UTC()
	row := &domain.InboundEvent{
		Channel:           channel,
		FromAddr:          from,
		ToAddr:            to,
		ProviderMessageID: providerMessageID,
		Payload:           payload,
		Status:            string(domain.InboundPending),
		AvailableAt:       now,
		UpdatedAt:         now,
		CreatedAt:         now,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel"}, {Name: "provider_message_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

// ClaimBatch atomically claims up to n pending, due events and marks them
// processing, invisible to concurrent claimers via SKIP LOCKED (§4.E).
func ClaimBatch(ctx context.Context, db *gorm.DB, n int) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		query := `SELECT id FROM inbound_events WHERE status = ? AND available_at <= ? ORDER BY id LIMIT ?`
		if tx.Dialector.Name() == "postgres" {
			query = `SELECT id FROM inbound_events WHERE status = ? AND available_at <= ? ORDER BY id LIMIT ? FOR UPDATE SKIP LOCKED`
		}
		if err := tx.Raw(query, string(domain.InboundPending), now, n).Scan(&ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&domain.InboundEvent{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{"status": string(domain.InboundProcessing), "updated_at": now}).Error
	})
	return ids, err
}

// MarkProcessed transitions an event to done.
func MarkProcessed(ctx context.Context, db *gorm.DB, id int64) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Model(&domain.InboundEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       string(domain.InboundDone),
			"processed_at": now,
			"updated_at":   now,
		}).Error
}

// MarkError records a processing failure, applying exponential backoff or
// dead-lettering the event once maxRetries is exceeded (§4.E). It returns
// whether the event is now dead.
func MarkError(ctx context.Context, db *gorm.DB, id int64, code, message string, maxRetries int, backoffBaseMs int64) (isDead bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev domain.InboundEvent
		if ferr := tx.Where("id = ?", id).First(&ev).Error; ferr != nil {
			return ferr
		}
		attempts := ev.Attempts + 1
		now := time.Now().UTC()

		if attempts > maxRetries {
			isDead = true
			return tx.Model(&domain.InboundEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
				"status":        string(domain.InboundDead),
				"attempts":      attempts,
				"error_code":    code,
				"error_message": message,
				"updated_at":    now,
			}).Error
		}

		delayMs := backoffBaseMs * int64(math.Pow(2, float64(attempts-1)))
		if delayMs > 60_000 {
			delayMs = 60_000
		}
		return tx.Model(&domain.InboundEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":        string(domain.InboundPending),
			"attempts":      attempts,
			"error_code":    code,
			"error_message": message,
			"available_at":  now.Add(time.Duration(delayMs) * time.Millisecond),
			"updated_at":    now,
		}).Error
	})
	return isDead, err
}

// ReapStale resets processing events whose last update is older than
// timeout back to pending, recovering from a worker crash mid-claim.
func ReapStale(ctx context.Context, db *gorm.DB, timeout time.Duration) error {
	cutoff := time.Now().UTC().Add(-timeout)
	return db.WithContext(ctx).Model(&domain.InboundEvent{}).
		Where("status = ? AND updated_at < ?", string(domain.InboundProcessing), cutoff).
		Updates(map[string]interface{}{"status": string(domain.InboundPending)}).Error
}

// FetchEvent loads a single event by id.
func FetchEvent(ctx context.Context, db *gorm.DB, id int64) (*domain.InboundEvent, error) {
	var ev domain.InboundEvent
	err := db.WithContext(ctx).Where("id = ?", id).First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
