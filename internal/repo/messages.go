// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides message persistence (§4.D): body
// dedup, conversation upsert, per-tuple idempotency, and schema-variant
// tolerant attachment linking.
package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/metrics"
)

// InsertMessageParams carries the fields needed to persist one message.
type InsertMessageParams struct {
	Direction      string
	Channel        string
	From           string
	To             string
	Body           string
	Attachments    []string
	SentAt         time.Time
	ReceivedAt     *time.Time
	ProviderID     string
	AttachmentMode AttachmentSchemaVariant
	Metrics        *metrics.Registry
}

// InsertMessage implements §4.D end to end: body dedup, conversation
// upsert, idempotency check, insert, counter update, attachment linking.
// Attachment failures are swallowed by linkAttachment and never fail the
// message insert; no attachment error is returned to the caller.
func InsertMessage(ctx context.Context, db *gorm.DB, p InsertMessageParams) (messageID string, created bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bodyID *string
		if p.Body != "" {
			id, berr := upsertMessageBody(ctx, tx, p.Body)
			if berr != nil {
				return berr
			}
			bodyID = &id
		}

		outcome, conversationID, _, uerr := UpsertConversation(ctx, tx, p.Channel, p.From, p.To, p.SentAt)
		recordUpsertOutcome(p.Metrics, outcome)
		if uerr != nil {
			return uerr
		}
		if outcome == UpsertFailed {
			return errors.New("conversation upsert failed")
		}

		existingID, ferr := findDuplicateMessage(ctx, tx, conversationID, p.Direction, p.SentAt, bodyID)
		if ferr != nil {
			return ferr
		}
		if existingID != "" {
			messageID = existingID
			created = false
			return nil
		}

		row := &domain.Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Direction:      p.Direction,
			ProviderID:     p.ProviderID,
			BodyID:         bodyID,
			SentAt:         p.SentAt,
			ReceivedAt:     p.ReceivedAt,
		}
		if cerr := tx.Create(row).Error; cerr != nil {
			return cerr
		}

		activityTs := p.SentAt
		if p.ReceivedAt != nil {
			activityTs = *p.ReceivedAt
		}
		if ierr := IncrementConversationCounter(ctx, tx, conversationID, activityTs); ierr != nil {
			return ierr
		}

		for _, url := range p.Attachments {
			linkAttachment(ctx, tx, row.ID, url, p.AttachmentMode)
		}

		messageID = row.ID
		created = true
		return nil
	})
	return messageID, created, err
}

// recordUpsertOutcome feeds the conversation upsert's branch into the
// registry's conversations_{created,reused,failures} counters (§4.N). reg is
// nil-safe since some callers (tests, offline tooling) construct
// InsertMessageParams without a registry.
func recordUpsertOutcome(reg *metrics.Registry, outcome UpsertOutcome) {
	if reg == nil {
		return
	}
	switch outcome {
	case UpsertCreated:
		reg.RecordConversationCreated()
	case UpsertReused:
		reg.RecordConversationReused()
	case UpsertFailed:
		reg.RecordConversationFailure()
	}
}

func upsertMessageBody(ctx context.Context, tx *gorm.DB, body string) (string, error) {
	row := &domain.MessageBody{ID: uuid.NewString(), Body: body}
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "body"}}, DoNothing: true}).
		Create(row).Error
	if err != nil {
		return "", err
	}

	var existing domain.MessageBody
	if err := tx.WithContext(ctx).Where("body = ?", body).First(&existing).Error; err != nil {
		return "", err
	}
	return existing.ID, nil
}

func findDuplicateMessage(ctx context.Context, tx *gorm.DB, conversationID, direction string, sentAt time.Time, bodyID *string) (string, error) {
	q := tx.WithContext(ctx).Model(&domain.Message{}).
		Where("conversation_id = ? AND direction = ? AND sent_at = ?", conversationID, direction, sentAt)
	if bodyID == nil {
		q = q.Where("body_id IS NULL")
	} else {
		q = q.Where("body_id = ?", *bodyID)
	}

	var existing domain.Message
	err := q.Limit(1).First(&existing).Error
	switch {
	case err == nil:
		return existing.ID, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", nil
	default:
		return "", err
	}
}

// linkAttachment resolves or creates the attachment row for url and links it
// to message, choosing the insert strategy named by mode (§7's three
// tolerated attachment_urls schema variants). Failures are swallowed:
// attachments never fail the message insert (§4.D).
func linkAttachment(ctx context.Context, tx *gorm.DB, messageID, url string, mode AttachmentSchemaVariant) {
	var (
		resolved *domain.Attachment
		ok       bool
	)
	switch mode {
	case AttachmentVariantRawHash, AttachmentVariantRawHashURL:
		resolved, ok = resolveOrCreateAttachmentByHash(ctx, tx, url, mode)
	default:
		resolved, ok = resolveOrCreateAttachmentByURL(ctx, tx, url)
	}
	if !ok {
		return
	}

	link := &domain.MessageAttachment{MessageID: messageID, AttachmentID: resolved.ID}
	tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(link)
}

// resolveOrCreateAttachmentByURL implements the url-only variant: the
// attachment row is keyed on url alone.
func resolveOrCreateAttachmentByURL(ctx context.Context, tx *gorm.DB, url string) (*domain.Attachment, bool) {
	att := &domain.Attachment{ID: uuid.NewString(), URL: &url}

	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "url"}}, DoNothing: true}).
		Create(att).Error; err != nil {
		return nil, false
	}

	var resolved domain.Attachment
	if err := tx.WithContext(ctx).Where("url = ?", url).First(&resolved).Error; err != nil {
		return nil, false
	}
	return &resolved, true
}

// resolveOrCreateAttachmentByHash implements the legacy raw+hash and
// raw+hash+url variants: the attachment is identified by a hash of its raw
// value (the incoming attachment string is the only "raw" representation
// the gateway ever receives, so it doubles as both raw and, for the
// raw+hash+url variant, url). Legacy hash columns carry no uniqueness
// guarantee, so a hash match is only treated as a dedup hit when the raw
// value itself also matches; a same-hash-different-raw hit is a collision,
// logged and skipped rather than linked (§7).
func resolveOrCreateAttachmentByHash(ctx context.Context, tx *gorm.DB, raw string, mode AttachmentSchemaVariant) (*domain.Attachment, bool) {
	sum := sha256.Sum256([]byte(raw))
	hash := hex.EncodeToString(sum[:])

	var existing domain.Attachment
	err := tx.WithContext(ctx).Where("hash = ?", hash).First(&existing).Error
	switch {
	case err == nil:
		if existing.Raw == nil || *existing.Raw != raw {
			log.Warn().Str("hash", hash).Msg("attachment hash collision: raw value mismatch, skipping link")
			return nil, false
		}
		return &existing, true
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false
	}

	att := &domain.Attachment{ID: uuid.NewString(), Raw: &raw, Hash: &hash}
	if mode == AttachmentVariantRawHashURL {
		att.URL = &raw
	}
	if err := tx.WithContext(ctx).Create(att).Error; err != nil {
		return nil, false
	}
	return att, true
}
