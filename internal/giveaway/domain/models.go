package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Mode selects how the eligible population is built.
type Mode string

const (
	// ModePerDonation gives every qualifying donation its own ticket.
	ModePerDonation Mode = "per_donation"
	// ModePerDonor merges a donor's donations into one ticket keyed by
	// lowercased email.
	ModePerDonor Mode = "per_donor"
)

// ParseMode validates a client-supplied mode string, defaulting to
// per_donation when empty.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.TrimSpace(value)) {
	case "", ModePerDonation:
		return ModePerDonation, nil
	case ModePerDonor:
		return ModePerDonor, nil
	default:
		return "", ErrInvalidMode
	}
}

// PopulationEntry is one ticket in a draw. In per_donor mode DonationID is
// the donor's earliest donation and AmountCents the donor's summed total.
type PopulationEntry struct {
	DonationID  snowflake.ID
	DonorKey    string
	AmountCents int64
}

// Fingerprint derives the verifiable population hash: sha256 over the mode,
// the minimum threshold and the ordered donation ids. Re-running the same
// selection must reproduce it exactly.
func Fingerprint(mode Mode, minAmountCents int64, entries []PopulationEntry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|", mode, minAmountCents)
	for i, entry := range entries {
		if i > 0 {
			h.Write([]byte(","))
		}
		h.Write([]byte(entry.DonationID.String()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GiveawayLog is the immutable audit record of one executed draw.
type GiveawayLog struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	OrgID            snowflake.ID `json:"org_id" gorm:"not null;index"`
	CampaignID       snowflake.ID `json:"campaign_id" gorm:"not null;index:idx_giveaway_campaign"`
	WinnerDonationID snowflake.ID `json:"winner_donation_id" gorm:"not null"`
	WinnerEmail      *string      `json:"-" gorm:"type:text"`
	Mode             Mode         `json:"mode" gorm:"type:text;not null;default:per_donation"`
	MinAmountCents   int64        `json:"min_amount_cents" gorm:"not null;default:0"`
	PopulationCount  int          `json:"population_count" gorm:"not null"`
	PopulationHash   string       `json:"population_hash" gorm:"type:text;not null"`
	CreatedByUserID  snowflake.ID `json:"created_by_user_id" gorm:"not null"`
	Notes            *string      `json:"notes" gorm:"type:text"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null;index:idx_giveaway_campaign"`
}

// TableName sets the database table name.
func (GiveawayLog) TableName() string { return "giveaway_logs" }

// WinnerDetail is the public serialization of the selected donation. The
// donor field is already masked; the raw email never leaves the service.
type WinnerDetail struct {
	DonationID  string     `json:"id"`
	CampaignID  string     `json:"campaign_id"`
	OrgID       string     `json:"org_id"`
	AmountCents int64      `json:"amount_cents"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Donor       string     `json:"donor"`
	CreatedAt   *time.Time `json:"created_at"`
}

// DrawResult pairs the winner with its audit record.
type DrawResult struct {
	Winner WinnerDetail `json:"winner"`
	Log    *GiveawayLog `json:"draw"`
}
