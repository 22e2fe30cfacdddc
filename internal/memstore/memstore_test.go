package memstore

import (
	"testing"
	"time"

	"github.com/tbourn/go-chat-backend/internal/snippet"
)

func TestInsertMessage_CreatesThenReusesConversation(t *testing.T) {
	s := New()
	t0 := time.Now().UTC().Truncate(time.Second)

	id1, created1 := s.InsertMessage("sms", "outbound", "+15551234567", "+15557654321", "hello", t0, nil)
	if !created1 {
		t.Fatalf("expected first insert to be created")
	}

	id2, created2 := s.InsertMessage("sms", "inbound", "+15557654321", "+15551234567", "hi back", t0.Add(time.Minute), nil)
	if !created2 || id1 == id2 {
		t.Fatalf("expected a distinct message for the reply")
	}

	rows, total := s.ListConversationsPage(1, 0)
	if total != 1 || len(rows) != 1 {
		t.Fatalf("expected the symmetric pair to share one conversation, got total=%d rows=%d", total, len(rows))
	}
	if rows[0].MessageCount != 2 {
		t.Fatalf("expected message_count=2, got %d", rows[0].MessageCount)
	}
}

func TestInsertMessage_DuplicateTupleIsNotCreated(t *testing.T) {
	s := New()
	sentAt := time.Now().UTC()

	id1, created1 := s.InsertMessage("email", "inbound", "a@example.com", "b@example.com", "same body", sentAt, nil)
	if !created1 {
		t.Fatalf("expected created")
	}
	id2, created2 := s.InsertMessage("email", "inbound", "a@example.com", "b@example.com", "same body", sentAt, nil)
	if created2 {
		t.Fatalf("expected duplicate tuple to be a no-op")
	}
	if id1 != id2 {
		t.Fatalf("expected duplicate insert to return the same id")
	}
}

func TestListConversationMessagesPage_OrdersByActivityDescending(t *testing.T) {
	s := New()
	t0 := time.Now().UTC().Truncate(time.Second)

	s.InsertMessage("sms", "outbound", "+15550000001", "+15550000002", "first", t0, nil)
	s.InsertMessage("sms", "inbound", "+15550000002", "+15550000001", "second", t0.Add(time.Minute), nil)

	rows, _ := s.ListConversationsPage(1, 0)
	if len(rows) != 1 {
		t.Fatalf("expected one conversation")
	}

	views, total, found := s.ListConversationMessagesPage(rows[0].ID, 1, 0, 64, snippet.RuneMaker{})
	if !found {
		t.Fatalf("expected conversation to be found")
	}
	if total != 2 || len(views) != 2 {
		t.Fatalf("expected 2 messages, got total=%d len=%d", total, len(views))
	}
	if views[0].Snippet != "second" {
		t.Fatalf("expected the most recently active message first, got %q", views[0].Snippet)
	}
}

func TestListConversationMessagesPage_UnknownConversationNotFound(t *testing.T) {
	s := New()
	if _, _, found := s.ListConversationMessagesPage("does-not-exist", 1, 0, 64, snippet.RuneMaker{}); found {
		t.Fatalf("expected unknown conversation id to report not found")
	}
}
