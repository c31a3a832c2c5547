package store

import (
	"context"
	"testing"
	"time"

	"github.com/rogersf/court-engine/internal/domain"
)

func TestEventRepo_AppendAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &EventRepo{}
	now := time.Now().Unix()

	events := []domain.SessionEvent{
		{SessionID: "s-1", SeqNo: 1, Day: 0, EventType: domain.EventSessionStarted, PayloadJSON: "{}", CreatedAt: now},
		{SessionID: "s-1", SeqNo: 2, Day: 1, EventType: domain.EventDayAdvanced, PayloadJSON: "{}", CreatedAt: now + 1},
		{SessionID: "s-1", SeqNo: 3, Day: 1, EventType: domain.EventChoiceResolved, PayloadJSON: `{"petition_id":2}`, CreatedAt: now + 2},
		{SessionID: "s-2", SeqNo: 1, Day: 0, EventType: domain.EventSessionStarted, PayloadJSON: "{}", CreatedAt: now},
	}

	for _, e := range events {
		tx, err := db.Begin()
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if err := repo.AppendTx(ctx, tx, e); err != nil {
			t.Fatalf("AppendTx seq=%d: %v", e.SeqNo, err)
		}
		tx.Commit()
	}

	// List all events since seq 0.
	got, err := repo.ListBySession(ctx, db.DB, "s-1", 0)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}

	// List events since seq 1 (should return seq 2, 3).
	got, err = repo.ListBySession(ctx, db.DB, "s-1", 1)
	if err != nil {
		t.Fatalf("ListBySession sinceSeq=1: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].SeqNo != 2 {
		t.Errorf("first event SeqNo = %d, want 2", got[0].SeqNo)
	}
	if got[1].PayloadJSON != `{"petition_id":2}` || got[1].Day != 1 {
		t.Errorf("second event = %+v", got[1])
	}
}

func TestEventRepo_DuplicateSeqNo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &EventRepo{}

	event := domain.SessionEvent{
		SessionID: "s-dup", SeqNo: 1, EventType: "test", PayloadJSON: "{}", CreatedAt: time.Now().Unix(),
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.AppendTx(ctx, tx, event); err != nil {
		t.Fatalf("first AppendTx: %v", err)
	}
	tx.Commit()

	// Duplicate (session_id, seq_no) should fail.
	tx2, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = repo.AppendTx(ctx, tx2, event)
	tx2.Rollback()

	if err == nil {
		t.Error("expected error on duplicate seq_no, got nil")
	}
}

func TestEventRepo_ListBySession_Empty(t *testing.T) {
	db := newTestDB(t)

	got, err := (&EventRepo{}).ListBySession(context.Background(), db.DB, "nonexistent", 0)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil slice for empty result, got %v", got)
	}
}
