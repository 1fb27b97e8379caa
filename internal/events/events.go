package events

// Donation lifecycle event types emitted by the reconciler.
const (
	EventDonationSucceeded = "donation.succeeded"
	EventDonationFailed    = "donation.failed"
	EventDonationCanceled  = "donation.canceled"
	EventGiveawayDrawn     = "giveaway.drawn"
)

// DonationPayload captures the minimal data downstream consumers need to act
// on a settled donation without re-reading the ledger.
type DonationPayload struct {
	DonationID  string `json:"donation_id"`
	CampaignID  string `json:"campaign_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	SourceEvent string `json:"source_event,omitempty"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p DonationPayload) ToMap() map[string]any {
	payload := map[string]any{
		"donation_id":  p.DonationID,
		"campaign_id":  p.CampaignID,
		"amount_cents": p.AmountCents,
		"currency":     p.Currency,
	}
	if p.SourceEvent != "" {
		payload["source_event"] = p.SourceEvent
	}
	return payload
}

// GiveawayDrawnPayload records an executed draw for downstream consumers.
type GiveawayDrawnPayload struct {
	GiveawayLogID    string `json:"giveaway_log_id"`
	CampaignID       string `json:"campaign_id"`
	WinnerDonationID string `json:"winner_donation_id"`
	Mode             string `json:"mode"`
	PopulationCount  int    `json:"population_count"`
	PopulationHash   string `json:"population_hash"`
	CreatedByUserID  string `json:"created_by_user_id"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p GiveawayDrawnPayload) ToMap() map[string]any {
	return map[string]any{
		"giveaway_log_id":    p.GiveawayLogID,
		"campaign_id":        p.CampaignID,
		"winner_donation_id": p.WinnerDonationID,
		"mode":               p.Mode,
		"population_count":   p.PopulationCount,
		"population_hash":    p.PopulationHash,
		"created_by_user_id": p.CreatedByUserID,
	}
}
