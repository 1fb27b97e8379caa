package eventstore

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupEventStoreDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS processed_events (
			event_id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			received_at TIMESTAMP NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create processed_events: %v", err)
	}
	return db
}

func TestRecordIfNewFirstWriterWins(t *testing.T) {
	store := NewStore(setupEventStoreDB(t))
	ctx := context.Background()

	inserted, err := store.RecordIfNew(ctx, "evt_1", "payment_intent.succeeded", []byte(`{"id":"evt_1"}`))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first delivery to insert")
	}

	inserted, err = store.RecordIfNew(ctx, "evt_1", "payment_intent.succeeded", []byte(`{"id":"evt_1"}`))
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate delivery to be a no-op")
	}
}

func TestRecordIfNewDistinctEvents(t *testing.T) {
	store := NewStore(setupEventStoreDB(t))
	ctx := context.Background()

	for _, id := range []string{"evt_a", "evt_b", "evt_c"} {
		inserted, err := store.RecordIfNew(ctx, id, "payment_intent.succeeded", nil)
		if err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
		if !inserted {
			t.Fatalf("expected %s to be new", id)
		}
	}
}

func TestRecordIfNewRejectsEmptyID(t *testing.T) {
	store := NewStore(setupEventStoreDB(t))
	if _, err := store.RecordIfNew(context.Background(), "  ", "x", nil); err == nil {
		t.Fatalf("expected error for empty event id")
	}
}
