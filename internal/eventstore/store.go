package eventstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store persists processed webhook events.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RecordIfNew inserts the event and reports whether this call was the first
// writer. Concurrent deliveries of the same event race on a single
// insert-or-ignore statement; exactly one caller observes true and every
// other caller must perform no further side effects for that delivery.
func (s *Store) RecordIfNew(ctx context.Context, eventID, eventType string, rawPayload []byte) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("event_store_unavailable")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, errors.New("missing_event_id")
	}
	payload := rawPayload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	result := s.db.WithContext(ctx).Exec(
		`INSERT INTO processed_events (event_id, event_type, payload, received_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (event_id) DO NOTHING`,
		eventID,
		eventType,
		datatypes.JSON(payload),
		time.Now().UTC(),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
