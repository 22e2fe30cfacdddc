// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the paginated read API consumed by the
// conversation/message HTTP handlers (§4.M).
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/snippet"
	"github.com/tbourn/go-chat-backend/internal/utils"
)

const defaultPageSize = utils.DefaultPageSize

// ListConversationsPage returns a page of conversations ordered by
// last_activity_at descending, id ascending on ties, plus the exact total
// row count.
func ListConversationsPage(ctx context.Context, db *gorm.DB, page, pageSize int) ([]domain.Conversation, int64, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		page = 1
	}

	var total int64
	if err := db.WithContext(ctx).Model(&domain.Conversation{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Conversation
	err := db.WithContext(ctx).
		Order("last_activity_at DESC, id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out).Error
	return out, total, err
}

// MessageView is the read-side projection of a Message for the
// conversation-messages listing (§4.M).
type MessageView struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Type      string    `json:"type"`
	Snippet   string    `json:"snippet"`
	Timestamp time.Time `json:"timestamp"`
}

// ListConversationMessagesPage returns a page of messages for a
// conversation, ordered by COALESCE(received_at, sent_at) descending, along
// with the exact total row count. maxChars bounds the projected snippet.
func ListConversationMessagesPage(ctx context.Context, db *gorm.DB, conversationID string, page, pageSize, maxChars int, maker snippet.Maker) ([]MessageView, int64, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		page = 1
	}

	var conv domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", conversationID).First(&conv).Error; err != nil {
		return nil, 0, err
	}

	var total int64
	if err := db.WithContext(ctx).Model(&domain.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []struct {
		domain.Message
		Body string
	}
	err := db.WithContext(ctx).
		Table("messages").
		Select("messages.*, message_bodies.body AS body").
		Joins("LEFT JOIN message_bodies ON message_bodies.id = messages.body_id").
		Where("messages.conversation_id = ?", conversationID).
		Order("COALESCE(messages.received_at, messages.sent_at) DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]MessageView, 0, len(rows))
	for _, r := range rows {
		ts := r.SentAt
		if r.ReceivedAt != nil {
			ts = *r.ReceivedAt
		}
		from, to := conv.ParticipantA, conv.ParticipantB
		if r.Direction == string(domain.DirectionOutbound) {
			from, to = conv.ParticipantB, conv.ParticipantA
		}
		out = append(out, MessageView{
			ID:        r.ID,
			From:      from,
			To:        to,
			Type:      conv.Channel,
			Snippet:   maker.Make(r.Body, maxChars),
			Timestamp: ts,
		})
	}
	return out, total, nil
}
