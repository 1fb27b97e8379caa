package receipts

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ReceiptStatus string

const (
	ReceiptStatusPending ReceiptStatus = "pending"
	ReceiptStatusSent    ReceiptStatus = "sent"
	ReceiptStatusFailed  ReceiptStatus = "failed"
)

// EmailReceipt tracks the thank-you receipt owed for one settled donation.
// The unique donation_id is the claim: whichever worker inserts the row owns
// the send.
type EmailReceipt struct {
	ID         snowflake.ID  `gorm:"primaryKey"`
	DonationID snowflake.ID  `gorm:"not null;uniqueIndex"`
	OrgID      snowflake.ID  `gorm:"not null;index"`
	Recipient  string        `gorm:"type:text;not null"`
	Status     ReceiptStatus `gorm:"type:text;not null;default:pending"`
	SentAt     *time.Time
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (EmailReceipt) TableName() string { return "email_receipts" }
