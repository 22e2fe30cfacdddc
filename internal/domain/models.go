// Package domain defines the core persistence models for the messaging
// gateway. These types are mapped with GORM and form the data layer shared
// across the repository and service layers.
package domain

import "time"

// Channel enumerates the supported messaging channels.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelMMS   Channel = "mms"
)

// Direction enumerates the two message directions.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Conversation groups every message exchanged between two participants on
// one channel. Rows are created lazily by the upsert engine and are never
// deleted by the core.
//
// Fields:
//   - Key: "{channel}:{participant_a}<->{participant_b}" with normalized,
//     lexicographically sorted participants; UNIQUE.
//   - ParticipantA/B: normalized addresses, ParticipantA <= ParticipantB.
//   - MessageCount: monotonic counter, incremented only after a committed
//     message insert.
//   - LastActivityAt: the maximum of its prior value and every activity
//     timestamp ever presented for the conversation.
type Conversation struct {
	ID             string    `json:"id"               gorm:"type:char(36);primaryKey"`
	Channel        string    `json:"channel"          gorm:"type:varchar(16);not null;uniqueIndex:ux_conv_participants,priority:1"`
	ParticipantA   string    `json:"participant_a"    gorm:"type:varchar(320);not null;uniqueIndex:ux_conv_participants,priority:2"`
	ParticipantB   string    `json:"participant_b"    gorm:"type:varchar(320);not null;uniqueIndex:ux_conv_participants,priority:3"`
	Key            string    `json:"key"              gorm:"type:varchar(661);not null;uniqueIndex:ux_conv_key"`
	MessageCount   int64     `json:"message_count"    gorm:"not null;default:0"`
	LastActivityAt time.Time `json:"last_activity_at" gorm:"index:idx_conv_activity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// MessageBody holds deduplicated message text, shared by equality across any
// number of messages. Empty bodies are never stored; a message with no text
// has a nil BodyID.
type MessageBody struct {
	ID   string `json:"id"   gorm:"type:char(36);primaryKey"`
	Body string `json:"body" gorm:"type:text;not null;uniqueIndex:ux_message_body"`
}

// TableName returns the database table name for MessageBody.
func (MessageBody) TableName() string { return "message_bodies" }

// Message is a single delivered or received item within a conversation.
//
// Idempotency: within a (conversation_id, direction, sent_at, body_id)
// tuple, at most one row exists; a duplicate insert returns the existing id
// without incrementing counters.
type Message struct {
	ID             string     `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string     `json:"conversation_id" gorm:"type:char(36);not null;index:idx_msg_conv,priority:1"`
	Direction      string     `json:"direction"       gorm:"type:varchar(8);not null;check:direction IN ('inbound','outbound')"`
	ProviderID     string     `json:"provider_id"     gorm:"type:varchar(64)"`
	BodyID         *string    `json:"body_id"         gorm:"type:char(36)"`
	SentAt         time.Time  `json:"sent_at"         gorm:"not null;index:idx_msg_conv,priority:2"`
	ReceivedAt     *time.Time `json:"received_at"`
	CreatedAt      time.Time  `json:"created_at"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Attachment stores a deduplicated attachment reference. The repository
// tolerates three historical schema variants (url-only, raw+hash,
// raw+hash+url); URL/Raw/Hash are therefore all nullable and the effective
// variant is probed once at startup (see internal/repo).
type Attachment struct {
	ID   string  `json:"id"             gorm:"type:char(36);primaryKey"`
	URL  *string `json:"url,omitempty"  gorm:"type:text;uniqueIndex:ux_attachment_url"`
	Raw  *string `json:"raw,omitempty"  gorm:"type:text"`
	Hash *string `json:"hash,omitempty" gorm:"type:varchar(64);index"`
}

// TableName returns the database table name for Attachment.
func (Attachment) TableName() string { return "attachment_urls" }

// MessageAttachment links a Message to an Attachment. Linking is
// upsert-idempotent: a duplicate link is a silent no-op.
type MessageAttachment struct {
	MessageID    string `json:"message_id"    gorm:"type:char(36);primaryKey"`
	AttachmentID string `json:"attachment_id" gorm:"type:char(36);primaryKey"`
}

// TableName returns the database table name for MessageAttachment.
func (MessageAttachment) TableName() string { return "message_attachment_urls" }

// InboundEventStatus enumerates the lifecycle states of an InboundEvent.
type InboundEventStatus string

const (
	InboundPending    InboundEventStatus = "pending"
	InboundProcessing InboundEventStatus = "processing"
	InboundDone       InboundEventStatus = "done"
	InboundDead        InboundEventStatus = "dead"
)

// InboundEvent is a durably stored inbound callback awaiting processing.
// Delivery is at-least-once; duplicates of the same
// (channel, provider_message_id) pair are absorbed at intake.
//
// Invariants: a row never transitions done -> pending; status=dead iff
// attempts > max_retries; claimed rows are invisible to other claimers
// (enforced via SELECT ... FOR UPDATE SKIP LOCKED at the repo layer).
type InboundEvent struct {
	ID                int64      `json:"id"                      gorm:"primaryKey;autoIncrement"`
	Channel           string     `json:"channel"                 gorm:"type:varchar(16);not null;uniqueIndex:ux_inbound_dedup,priority:1"`
	FromAddr          string     `json:"from"                    gorm:"type:varchar(320);not null"`
	ToAddr            string     `json:"to"                      gorm:"type:varchar(320);not null"`
	ProviderMessageID *string    `json:"provider_message_id"     gorm:"type:varchar(128);uniqueIndex:ux_inbound_dedup,priority:2"`
	Payload           string     `json:"payload"                 gorm:"type:text;not null"`
	Status            string     `json:"status"                  gorm:"type:varchar(16);not null;index:idx_inbound_pickup,priority:1"`
	Attempts          int        `json:"attempts"                gorm:"not null;default:0"`
	AvailableAt       time.Time  `json:"available_at"            gorm:"index:idx_inbound_pickup,priority:2"`
	UpdatedAt         time.Time  `json:"updated_at"               gorm:"index"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
	ErrorCode         *string    `json:"error_code,omitempty"     gorm:"type:varchar(64)"`
	ErrorMessage      *string    `json:"error_message,omitempty"  gorm:"type:text"`
	CreatedAt         time.Time  `json:"created_at"`
}

// TableName returns the database table name for InboundEvent.
func (InboundEvent) TableName() string { return "inbound_events" }
