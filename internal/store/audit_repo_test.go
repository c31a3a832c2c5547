package store

import (
	"context"
	"testing"
	"time"

	"github.com/rogersf/court-engine/internal/domain"
)

func TestAuditRepo_RecordAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &AuditRepo{}
	now := time.Now().Unix()

	records := []domain.AuditRecord{
		{ID: "aud-1", SessionID: "s-1", Category: "data", Action: "unknown_field", DetailJSON: `{"field":"piety"}`, Severity: "warn", CreatedAt: now},
		{ID: "aud-2", SessionID: "s-1", Category: "action", Action: "rejected", DetailJSON: `{"code":-33017}`, Severity: "info", CreatedAt: now + 1},
		{ID: "aud-3", SessionID: "s-2", Category: "data", Action: "random_money", DetailJSON: "{}", Severity: "warn", CreatedAt: now + 2},
	}

	for _, r := range records {
		if err := repo.Record(ctx, db.DB, r); err != nil {
			t.Fatalf("Record %s: %v", r.ID, err)
		}
	}

	got, err := repo.ListBySession(ctx, db.DB, "s-1")
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != "aud-1" {
		t.Errorf("first record ID = %q, want %q", got[0].ID, "aud-1")
	}
	if got[1].ID != "aud-2" {
		t.Errorf("second record ID = %q, want %q", got[1].ID, "aud-2")
	}
}

func TestAuditRepo_DuplicateID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &AuditRepo{}

	rec := domain.AuditRecord{
		ID: "aud-dup", SessionID: "s-1", Category: "test",
		Action: "test", CreatedAt: time.Now().Unix(),
	}

	if err := repo.Record(ctx, db.DB, rec); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if err := repo.Record(ctx, db.DB, rec); err == nil {
		t.Error("expected error on duplicate ID, got nil")
	}
}

func TestAuditRepo_ListBySession_Empty(t *testing.T) {
	db := newTestDB(t)

	got, err := (&AuditRepo{}).ListBySession(context.Background(), db.DB, "nonexistent")
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for empty result, got %v", got)
	}
}
