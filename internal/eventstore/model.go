package eventstore

import (
	"time"

	"gorm.io/datatypes"
)

// ProcessedEvent is one physically distinct webhook delivery. Rows are
// append-only: they are never updated or deleted, forming the audit trail
// and the idempotency barrier for the reconciliation pipeline.
type ProcessedEvent struct {
	EventID    string         `json:"event_id" gorm:"primaryKey;type:text"`
	EventType  string         `json:"event_type" gorm:"type:text;not null"`
	Payload    datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt time.Time      `json:"received_at" gorm:"not null"`
}

// TableName sets the database table name.
func (ProcessedEvent) TableName() string { return "processed_events" }
