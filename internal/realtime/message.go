package realtime

// DonationDelta is the sanitized payload pushed to campaign subscribers when
// a donation settles. Donor is already masked; raw emails and payment intent
// identifiers never leave the pipeline.
type DonationDelta struct {
	CampaignID  string  `json:"campaign_id"`
	AmountCents int64   `json:"amount_cents"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Donor       string  `json:"donor"`
	TotalRaised float64 `json:"total_raised"`
}

// Envelope is the wire frame for every server-to-client push.
type Envelope struct {
	Type       string      `json:"type"`
	CampaignID string      `json:"campaign_id"`
	Data       interface{} `json:"data,omitempty"`
}

const (
	TypeDonationReceived = "donation.received"
	TypeSubscribed       = "subscribed"
	TypeUnsubscribed     = "unsubscribed"
)

// subscribeRequest is the only client-to-server frame the hub understands.
type subscribeRequest struct {
	Action     string `json:"action"`
	CampaignID string `json:"campaign_id"`
}

const (
	actionJoin  = "join"
	actionLeave = "leave"
)
