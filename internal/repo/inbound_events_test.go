package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

func TestInsertInboundEvent_DedupsOnProviderMessageID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	pmid := "provider-1"

	if err := InsertInboundEvent(ctx, db, "sms", "+15551234567", "+15557654321", &pmid, `{"body":"hi"}`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := InsertInboundEvent(ctx, db, "sms", "+15551234567", "+15557654321", &pmid, `{"body":"hi again"}`); err != nil {
		t.Fatalf("duplicate insert should be a silent no-op, got error: %v", err)
	}

	var count int64
	db.Model(&domain.InboundEvent{}).Where("channel = ?", "sms").Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one row after dedup, got %d", count)
	}
}

func TestClaimBatch_MarksProcessingAndExcludesFromNextClaim(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := InsertInboundEvent(ctx, db, "email", "a@example.com", "b@example.com", nil, `{}`); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	ids, err := ClaimBatch(ctx, db, 2)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 claimed ids, got %d", len(ids))
	}

	remaining, err := ClaimBatch(ctx, db, 10)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining pending event, got %d", len(remaining))
	}
}

func TestMarkError_RetriesThenDeadLetters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := InsertInboundEvent(ctx, db, "sms", "+1", "+2", nil, `{}`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	ids, err := ClaimBatch(ctx, db, 1)
	if err != nil || len(ids) != 1 {
		t.Fatalf("claim: ids=%v err=%v", ids, err)
	}
	id := ids[0]

	for i := 0; i < 2; i++ {
		dead, err := MarkError(ctx, db, id, "process_error", "boom", 2, 10)
		if err != nil {
			t.Fatalf("mark error %d: %v", i, err)
		}
		if i < 1 && dead {
			t.Fatalf("should not be dead before exceeding max retries")
		}
		if i == 1 && !dead {
			t.Fatalf("expected dead-letter after attempts > maxRetries")
		}
	}

	ev, err := FetchEvent(ctx, db, id)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if ev.Status != string(domain.InboundDead) {
		t.Fatalf("expected status=dead, got %q", ev.Status)
	}
}

func TestReapStale_RestoresProcessingToPending(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := InsertInboundEvent(ctx, db, "sms", "+1", "+2", nil, `{}`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	ids, err := ClaimBatch(ctx, db, 1)
	if err != nil || len(ids) != 1 {
		t.Fatalf("claim: ids=%v err=%v", ids, err)
	}

	stale := time.Now().UTC().Add(-time.Hour)
	db.Model(&domain.InboundEvent{}).Where("id = ?", ids[0]).Update("updated_at", stale)

	if err := ReapStale(ctx, db, time.Minute); err != nil {
		t.Fatalf("reap: %v", err)
	}

	ev, err := FetchEvent(ctx, db, ids[0])
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if ev.Status != string(domain.InboundPending) {
		t.Fatalf("expected reaped event to be pending again, got %q", ev.Status)
	}
}

func TestFetchEvent_MissingReturnsNil(t *testing.T) {
	db := openTestDB(t)
	ev, err := FetchEvent(context.Background(), db, 999_999)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if ev != nil {
		t.Fatalf("expected nil for missing event, got %+v", ev)
	}
}
