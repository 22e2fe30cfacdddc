// Package memstore implements the in-process conversation/message store
// used when the gateway degrades to in-memory-only mode (no DATABASE_URL,
// or a failed pool open — spec.md §9: "In-memory fallback stores should
// mirror the same shape via maps keyed by the canonical conversation key").
// It mirrors internal/repo's upsert/dedup/pagination semantics against
// maps instead of a database, grounded on the original implementation's
// store/conversations.rs and store/messages.rs (a RwLock<HashMap<...>> plus
// a RwLock<Vec<...>>, updated together on every insert). Nothing here
// survives a process restart.
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-chat-backend/internal/convkey"
	"github.com/tbourn/go-chat-backend/internal/snippet"
	"github.com/tbourn/go-chat-backend/internal/utils"
)

type conversation struct {
	id             string
	channel        string
	participantA   string
	participantB   string
	key            string
	messageCount   int64
	lastActivityAt time.Time
}

type message struct {
	id             string
	conversationID string
	direction      string
	from, to       string
	channel        string
	body           string
	sentAt         time.Time
	receivedAt     *time.Time
}

// Store holds every conversation and message accepted since process start.
// Safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation // keyed by convkey.Key.Value
	byID          map[string]*conversation // keyed by conversation id
	messages      []*message
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		conversations: make(map[string]*conversation),
		byID:          make(map[string]*conversation),
	}
}

const defaultPageSize = utils.DefaultPageSize

// ConversationView is the read-side projection of a conversation, shaped to
// match repo.ListConversationsPage's row fields.
type ConversationView struct {
	ID             string
	Channel        string
	ParticipantA   string
	ParticipantB   string
	Key            string
	MessageCount   int64
	LastActivityAt time.Time
}

// MessageView mirrors repo.MessageView.
type MessageView struct {
	ID        string
	From      string
	To        string
	Type      string
	Snippet   string
	Timestamp time.Time
}

func activityTimestamp(sentAt time.Time, receivedAt *time.Time) time.Time {
	if receivedAt != nil {
		return *receivedAt
	}
	return sentAt
}

// InsertMessage mirrors repo.InsertMessage's conversation-upsert and
// per-tuple dedup behavior (§4.C, §4.D) against the in-process maps.
// Attachments are accepted but not linked: legacy-schema attachment
// variants have no meaning without a database, so every degraded-mode
// attachment is treated as the url-only case and simply discarded here --
// there is no attachment table to link into in memory.
func (s *Store) InsertMessage(channel, direction, from, to, body string, sentAt time.Time, receivedAt *time.Time) (id string, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := convkey.Derive(channel, from, to)
	conv, ok := s.conversations[k.Value]
	if !ok {
		conv = &conversation{
			id:           uuid.NewString(),
			channel:      channel,
			participantA: k.ParticipantA,
			participantB: k.ParticipantB,
			key:          k.Value,
		}
		s.conversations[k.Value] = conv
		s.byID[conv.id] = conv
	}

	for _, m := range s.messages {
		if m.conversationID == conv.id && m.direction == direction && m.sentAt.Equal(sentAt) && m.body == body {
			return m.id, false
		}
	}

	msg := &message{
		id:             uuid.NewString(),
		conversationID: conv.id,
		direction:      direction,
		from:           from,
		to:             to,
		channel:        channel,
		body:           body,
		sentAt:         sentAt,
		receivedAt:     receivedAt,
	}
	s.messages = append(s.messages, msg)

	conv.messageCount++
	ts := activityTimestamp(sentAt, receivedAt)
	if ts.After(conv.lastActivityAt) {
		conv.lastActivityAt = ts
	}

	return msg.id, true
}

// ListConversationsPage mirrors repo.ListConversationsPage's ordering
// (last_activity_at DESC, id ASC).
func (s *Store) ListConversationsPage(page, pageSize int) ([]ConversationView, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		page = 1
	}

	items := make([]*conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].lastActivityAt.Equal(items[j].lastActivityAt) {
			return items[i].lastActivityAt.After(items[j].lastActivityAt)
		}
		return items[i].id < items[j].id
	})

	total := int64(len(items))
	start := (page - 1) * pageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	out := make([]ConversationView, 0, end-start)
	for _, c := range items[start:end] {
		out = append(out, ConversationView{
			ID:             c.id,
			Channel:        c.channel,
			ParticipantA:   c.participantA,
			ParticipantB:   c.participantB,
			Key:            c.key,
			MessageCount:   c.messageCount,
			LastActivityAt: c.lastActivityAt,
		})
	}
	return out, total
}

// ListConversationMessagesPage mirrors repo.ListConversationMessagesPage's
// ordering (COALESCE(received_at, sent_at) DESC) and snippet projection.
// ok is false when conversationID names no known conversation.
func (s *Store) ListConversationMessagesPage(conversationID string, page, pageSize, maxChars int, maker snippet.Maker) (views []MessageView, total int64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, known := s.byID[conversationID]
	if !known {
		return nil, 0, false
	}

	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		page = 1
	}

	matched := make([]*message, 0)
	for _, m := range s.messages {
		if m.conversationID == conversationID {
			matched = append(matched, m)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return activityTimestamp(matched[i].sentAt, matched[i].receivedAt).After(
			activityTimestamp(matched[j].sentAt, matched[j].receivedAt))
	})

	total = int64(len(matched))
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]MessageView, 0, end-start)
	for _, m := range matched[start:end] {
		from, to := conv.participantA, conv.participantB
		if m.direction == "outbound" {
			from, to = conv.participantB, conv.participantA
		}
		out = append(out, MessageView{
			ID:        m.id,
			From:      from,
			To:        to,
			Type:      conv.channel,
			Snippet:   maker.Make(m.body, maxChars),
			Timestamp: activityTimestamp(m.sentAt, m.receivedAt),
		})
	}
	return out, total, true
}
