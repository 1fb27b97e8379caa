package domain

import (
	"fmt"
	"strings"

	donationdomain "github.com/MowahidLatif/helping-hands-backend/internal/donation/domain"
	"github.com/bwmarrin/snowflake"
)

// Processor event types the reconciler acts on. Anything else is recorded
// and acknowledged without touching the ledger.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
)

// StatusForEventType maps a processor event type onto the terminal donation
// status it implies.
func StatusForEventType(eventType string) (donationdomain.Status, bool) {
	switch eventType {
	case EventPaymentSucceeded:
		return donationdomain.StatusSucceeded, true
	case EventPaymentFailed:
		return donationdomain.StatusFailed, true
	case EventPaymentCanceled:
		return donationdomain.StatusCanceled, true
	default:
		return "", false
	}
}

// ParsedEvent is the provider-agnostic view of one webhook delivery after
// verification.
type ParsedEvent struct {
	EventID         string
	Type            string
	PaymentIntentID string
	// DonationID carries the metadata donation_id hint, when present.
	DonationID  string
	AmountCents int64
	Currency    string
	RawPayload  []byte
}

// StableID returns the idempotency key for the event store. Signed events
// carry a processor-issued id; development payloads fall back to a composite
// that still collapses redelivery of the same logical event.
func (e ParsedEvent) StableID() string {
	if id := strings.TrimSpace(e.EventID); id != "" {
		return id
	}
	return fmt.Sprintf("%s|%s|%s", e.Type, e.PaymentIntentID, e.DonationID)
}

// Result reports what one delivery did to the ledger.
type Result struct {
	Duplicate bool
	// Ignored holds the event type when it maps to no ledger transition.
	Ignored string
	// Orphan is set when the event verified but matched no donation.
	Orphan  bool
	Applied bool

	DonationID  snowflake.ID
	CampaignID  snowflake.ID
	Status      donationdomain.Status
	TotalRaised float64
}
