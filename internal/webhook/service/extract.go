package service

import (
	"encoding/json"
	"net/http"
	"strings"

	webhookdomain "github.com/MowahidLatif/helping-hands-backend/internal/webhook/domain"
	"github.com/stripe/stripe-go/v74/webhook"
)

// paymentIntentPayload is the slice of the payment_intent object the
// reconciler acts on.
type paymentIntentPayload struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// devEnvelope mirrors the processor event frame for unsigned development
// payloads.
type devEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func (s *Service) extract(payload []byte, headers http.Header) (webhookdomain.ParsedEvent, error) {
	if s.signingSecret != "" {
		return extractSigned(payload, headers.Get("Stripe-Signature"), s.signingSecret)
	}
	return extractTrusted(payload)
}

func extractSigned(payload []byte, signature, secret string) (webhookdomain.ParsedEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, secret)
	if err != nil {
		return webhookdomain.ParsedEvent{}, webhookdomain.ErrInvalidSignature
	}

	var pi paymentIntentPayload
	if len(event.Data.Raw) > 0 {
		// a decode miss just means an object shape we do not act on
		_ = json.Unmarshal(event.Data.Raw, &pi)
	}

	return webhookdomain.ParsedEvent{
		EventID:         event.ID,
		Type:            string(event.Type),
		PaymentIntentID: pi.ID,
		DonationID:      pi.Metadata["donation_id"],
		AmountCents:     pi.Amount,
		Currency:        pi.Currency,
		RawPayload:      payload,
	}, nil
}

// extractTrusted parses unsigned payloads. Only for development setups where
// no signing secret is configured; the payload is taken at face value.
func extractTrusted(payload []byte) (webhookdomain.ParsedEvent, error) {
	var env devEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return webhookdomain.ParsedEvent{}, webhookdomain.ErrBadPayload
	}
	if strings.TrimSpace(env.Type) == "" {
		return webhookdomain.ParsedEvent{}, webhookdomain.ErrBadPayload
	}

	var pi paymentIntentPayload
	if len(env.Data.Object) > 0 {
		_ = json.Unmarshal(env.Data.Object, &pi)
	} else {
		// payment_intent posted without the event frame
		_ = json.Unmarshal(payload, &pi)
	}

	return webhookdomain.ParsedEvent{
		EventID:         env.ID,
		Type:            env.Type,
		PaymentIntentID: pi.ID,
		DonationID:      pi.Metadata["donation_id"],
		AmountCents:     pi.Amount,
		Currency:        pi.Currency,
		RawPayload:      payload,
	}, nil
}
