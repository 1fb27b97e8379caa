package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the donation lifecycle state.
type Status string

const (
	StatusInitiated       Status = "initiated"
	StatusRequiresPayment Status = "requires_payment"
	StatusProcessing      Status = "processing"
	StatusSucceeded       Status = "succeeded"
	StatusFailed          Status = "failed"
	StatusRefunded        Status = "refunded"
	StatusCanceled        Status = "canceled"
)

// IsTerminal reports whether the webhook pipeline takes further ordinary
// action after this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled, StatusRefunded:
		return true
	}
	return false
}

// Donation is one donor payment attempt against a campaign. AmountCents is
// immutable after creation; the intent id, once attached, is never
// reassigned to a different donation.
type Donation struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID `json:"org_id" gorm:"not null;index"`
	CampaignID  snowflake.ID `json:"campaign_id" gorm:"not null;index:idx_donations_campaign"`
	AmountCents int64        `json:"amount_cents" gorm:"not null;check:amount_cents > 0"`
	Currency    string       `json:"currency" gorm:"type:text;not null;default:usd"`
	DonorEmail  *string      `json:"donor_email,omitempty" gorm:"type:text"`
	Status      Status       `json:"status" gorm:"type:text;not null;default:initiated"`

	// StripePaymentIntentID links at most one processor intent to this row.
	StripePaymentIntentID *string `json:"stripe_payment_intent_id,omitempty" gorm:"type:text;uniqueIndex"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_donations_campaign"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Donation) TableName() string { return "donations" }

// Amount is the decimal value of AmountCents.
func (d Donation) Amount() float64 {
	return float64(d.AmountCents) / 100.0
}

// Email returns the donor email or "" when none is on file.
func (d Donation) Email() string {
	if d.DonorEmail == nil {
		return ""
	}
	return *d.DonorEmail
}
