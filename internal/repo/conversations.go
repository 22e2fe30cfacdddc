// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the conversation identity/upsert engine
// (§4.B, §4.C): deriving a canonical key for a pair of addresses on a
// channel, and upserting the owning Conversation row under contention.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-chat-backend/internal/convkey"
	"github.com/tbourn/go-chat-backend/internal/domain"
)

// withRowLock applies SELECT ... FOR UPDATE on dialects that support
// row-level locking. SQLite serializes writers at the database level and
// does not support FOR UPDATE, so it is skipped there; Postgres deployments
// get the row lock the upsert protocol in §4.C relies on.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// UpsertOutcome reports which branch the conversation upsert took.
type UpsertOutcome int

const (
	UpsertFailed UpsertOutcome = iota
	UpsertCreated
	UpsertReused
)

// UpsertConversation derives the canonical key for (channel, from, to) and
// either reuses the existing Conversation row or creates one, advancing
// last_activity_at monotonically either way (§4.C). Callers must run this
// within a transaction alongside any subsequent message insert.
func UpsertConversation(ctx context.Context, db *gorm.DB, channel, from, to string, activityTs time.Time) (UpsertOutcome, string, string, error) {
	k := convkey.Derive(channel, from, to)

	var existing domain.Conversation
	err := withRowLock(db.WithContext(ctx)).
		Where("channel = ? AND participant_a = ? AND participant_b = ?", channel, k.ParticipantA, k.ParticipantB).
		First(&existing).Error

	switch {
	case err == nil:
		if activityTs.After(existing.LastActivityAt) {
			if uerr := db.WithContext(ctx).Model(&domain.Conversation{}).
				Where("id = ?", existing.ID).
				Update("last_activity_at", activityTs).Error; uerr != nil {
				return UpsertFailed, "", "", uerr
			}
		}
		return UpsertReused, existing.ID, k.Value, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		row := &domain.Conversation{
			ID:             uuid.NewString(),
			Channel:        channel,
			ParticipantA:   k.ParticipantA,
			ParticipantB:   k.ParticipantB,
			Key:            k.Value,
			LastActivityAt: activityTs,
		}
		createErr := db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "channel"}, {Name: "participant_a"}, {Name: "participant_b"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"last_activity_at": gorm.Expr("CASE WHEN conversations.last_activity_at > ? THEN conversations.last_activity_at ELSE ? END", activityTs, activityTs),
				}),
			}).
			Create(row).Error
		if createErr != nil {
			return UpsertFailed, "", "", createErr
		}

		var resolved domain.Conversation
		if ferr := db.WithContext(ctx).
			Where("channel = ? AND participant_a = ? AND participant_b = ?", channel, k.ParticipantA, k.ParticipantB).
			First(&resolved).Error; ferr != nil {
			return UpsertFailed, "", "", ferr
		}
		return UpsertCreated, resolved.ID, k.Value, nil

	default:
		return UpsertFailed, "", "", err
	}
}

// IncrementConversationCounter advances message_count and last_activity_at
// in a single statement so concurrent increments compose without
// application-level locking (§4.C).
func IncrementConversationCounter(ctx context.Context, db *gorm.DB, conversationID string, ts time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE conversations SET message_count = message_count + 1,
		 last_activity_at = CASE WHEN last_activity_at > ? THEN last_activity_at ELSE ? END
		 WHERE id = ?`, ts, ts, conversationID).Error
}
