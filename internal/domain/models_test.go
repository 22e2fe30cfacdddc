package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Conversation{}).TableName():      "conversations",
		(MessageBody{}).TableName():       "message_bodies",
		(Message{}).TableName():           "messages",
		(Attachment{}).TableName():        "attachment_urls",
		(MessageAttachment{}).TableName(): "message_attachment_urls",
		(InboundEvent{}).TableName():      "inbound_events",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrate_AndUniqueConstraints(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Conversation{}, &MessageBody{}, &Message{}, &Attachment{}, &MessageAttachment{}, &InboundEvent{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	conv := &Conversation{
		ID:             uuid.NewString(),
		Channel:        string(ChannelEmail),
		ParticipantA:   "alice@example.com",
		ParticipantB:   "bob@example.com",
		Key:            "email:alice@example.com<->bob@example.com",
		LastActivityAt: time.Now().UTC(),
	}
	if err := db.Create(conv).Error; err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	dup := &Conversation{
		ID:             uuid.NewString(),
		Channel:        string(ChannelEmail),
		ParticipantA:   "alice@example.com",
		ParticipantB:   "bob@example.com",
		Key:            "email:alice@example.com<->bob@example.com",
		LastActivityAt: time.Now().UTC(),
	}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected unique-constraint violation on duplicate participants/key")
	}

	body := &MessageBody{ID: uuid.NewString(), Body: "hello"}
	if err := db.Create(body).Error; err != nil {
		t.Fatalf("create body: %v", err)
	}
	dupBody := &MessageBody{ID: uuid.NewString(), Body: "hello"}
	if err := db.Create(dupBody).Error; err == nil {
		t.Fatalf("expected unique-constraint violation on duplicate body text")
	}

	msg := &Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Direction:      string(DirectionOutbound),
		BodyID:         &body.ID,
		SentAt:         time.Now().UTC(),
	}
	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("create message: %v", err)
	}

	pmid := "provider-msg-1"
	ev := &InboundEvent{
		Channel:           string(ChannelSMS),
		FromAddr:          "+15550001234",
		ToAddr:            "+15550005678",
		ProviderMessageID: &pmid,
		Payload:           `{"body":"hi"}`,
		Status:            string(InboundPending),
		AvailableAt:       time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	if err := db.Create(ev).Error; err != nil {
		t.Fatalf("create inbound event: %v", err)
	}
	dupEv := &InboundEvent{
		Channel:           string(ChannelSMS),
		FromAddr:          "+15550001234",
		ToAddr:            "+15550005678",
		ProviderMessageID: &pmid,
		Payload:           `{"body":"hi again"}`,
		Status:            string(InboundPending),
		AvailableAt:       time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	if err := db.Create(dupEv).Error; err == nil {
		t.Fatalf("expected unique-constraint violation on duplicate (channel, provider_message_id)")
	}
}
