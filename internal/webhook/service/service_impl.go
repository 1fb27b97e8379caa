package service

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	auditdomain "github.com/MowahidLatif/helping-hands-backend/internal/audit/domain"
	campaigndomain "github.com/MowahidLatif/helping-hands-backend/internal/campaign/domain"
	"github.com/MowahidLatif/helping-hands-backend/internal/config"
	donationdomain "github.com/MowahidLatif/helping-hands-backend/internal/donation/domain"
	"github.com/MowahidLatif/helping-hands-backend/internal/events"
	"github.com/MowahidLatif/helping-hands-backend/internal/eventstore"
	"github.com/MowahidLatif/helping-hands-backend/internal/observability/logger"
	"github.com/MowahidLatif/helping-hands-backend/internal/observability/metrics"
	"github.com/MowahidLatif/helping-hands-backend/internal/realtime"
	webhookdomain "github.com/MowahidLatif/helping-hands-backend/internal/webhook/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	Cfg          config.Config
	EventStore   *eventstore.Store
	DonationRepo donationdomain.Repository
	CampaignSvc  campaigndomain.Service
	Notifier     realtime.Notifier
	Outbox       *events.Outbox
	AuditSvc     auditdomain.Service
}

type Service struct {
	log           *zap.Logger
	eventStore    *eventstore.Store
	donationRepo  donationdomain.Repository
	campaignSvc   campaigndomain.Service
	notifier      realtime.Notifier
	outbox        *events.Outbox
	auditSvc      auditdomain.Service
	metrics       *metrics.PipelineMetrics
	signingSecret string
}

func NewService(p Params) webhookdomain.Service {
	return &Service{
		log:          p.Log.Named("webhook.service"),
		eventStore:   p.EventStore,
		donationRepo: p.DonationRepo,
		campaignSvc:  p.CampaignSvc,
		notifier:     p.Notifier,
		outbox:       p.Outbox,
		auditSvc:     p.AuditSvc,
		metrics: metrics.PipelineWithConfig(metrics.Config{
			ServiceName: p.Cfg.ServiceName,
			Environment: p.Cfg.Environment,
		}),
		signingSecret: strings.TrimSpace(p.Cfg.StripeWebhookSecret),
	}
}

// Handle runs one delivery through the pipeline: verify, record, classify,
// resolve, apply, recompute, invalidate, notify. The event store insert is
// the idempotency barrier; every step after it tolerates failure without
// re-running earlier ones.
func (s *Service) Handle(ctx context.Context, payload []byte, headers http.Header) (webhookdomain.Result, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveWebhookDuration(time.Since(start))
	}()

	parsed, err := s.extract(payload, headers)
	if err != nil {
		s.metrics.IncWebhookEvent("rejected")
		s.log.Warn("webhook rejected",
			zap.String("signature", logger.MaskSignature(headers.Get("Stripe-Signature"))),
			zap.Error(err),
		)
		return webhookdomain.Result{}, err
	}

	eventID := parsed.StableID()
	inserted, err := s.eventStore.RecordIfNew(ctx, eventID, parsed.Type, parsed.RawPayload)
	if err != nil {
		return webhookdomain.Result{}, err
	}
	if !inserted {
		s.metrics.IncWebhookEvent("duplicate")
		s.log.Info("duplicate webhook delivery",
			zap.String("event_id", eventID),
			zap.String("event_type", parsed.Type),
		)
		return webhookdomain.Result{Duplicate: true}, nil
	}

	status, handled := webhookdomain.StatusForEventType(parsed.Type)
	if !handled {
		s.metrics.IncWebhookEvent("ignored")
		return webhookdomain.Result{Ignored: parsed.Type}, nil
	}

	donation, err := s.resolveDonation(ctx, parsed)
	if err != nil {
		return webhookdomain.Result{}, err
	}
	if donation == nil {
		s.metrics.IncWebhookEvent("orphan")
		s.log.Warn("webhook matched no donation",
			zap.String("event_id", eventID),
			zap.String("event_type", parsed.Type),
			zap.String("payment_intent_id", parsed.PaymentIntentID),
		)
		return webhookdomain.Result{Orphan: true}, nil
	}

	if _, err := s.donationRepo.SetStatusByID(ctx, donation.ID, status); err != nil {
		return webhookdomain.Result{}, err
	}
	donation.Status = status

	result := webhookdomain.Result{
		Applied:    true,
		DonationID: donation.ID,
		CampaignID: donation.CampaignID,
		Status:     status,
	}

	total, err := s.campaignSvc.RecomputeTotal(ctx, donation.CampaignID)
	if err != nil {
		// the transition is already durable; the progress TTL heals reads
		s.log.Error("recompute failed after apply",
			zap.String("event_id", eventID),
			zap.String("campaign_id", donation.CampaignID.String()),
			zap.Error(err),
		)
	} else {
		result.TotalRaised = total
		s.campaignSvc.InvalidateProgress(ctx, donation.CampaignID)
		if status == donationdomain.StatusSucceeded {
			_ = s.notifier.NotifyDonation(ctx, realtime.DonationDelta{
				CampaignID:  donation.CampaignID.String(),
				AmountCents: donation.AmountCents,
				Amount:      donation.Amount(),
				Currency:    donation.Currency,
				Donor:       logger.MaskEmail(donation.Email()),
				TotalRaised: total,
			})
		}
	}

	s.publishEvent(ctx, eventID, donation, status)
	s.writeAuditLog(ctx, eventID, parsed.Type, donation, status)
	s.metrics.IncWebhookEvent("applied")

	s.log.Info("webhook applied",
		zap.String("event_id", eventID),
		zap.String("event_type", parsed.Type),
		zap.String("donation_id", donation.ID.String()),
		zap.String("status", string(status)),
	)
	return result, nil
}

// resolveDonation looks the donation up by payment intent first, then by the
// metadata donation_id hint. On a metadata hit the intent is attached if the
// row has none yet; an already-set intent is never overwritten.
func (s *Service) resolveDonation(ctx context.Context, parsed webhookdomain.ParsedEvent) (*donationdomain.Donation, error) {
	if parsed.PaymentIntentID != "" {
		d, err := s.donationRepo.FindByIntentID(ctx, parsed.PaymentIntentID)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}

	hint := strings.TrimSpace(parsed.DonationID)
	if hint == "" {
		return nil, nil
	}
	raw, err := strconv.ParseInt(hint, 10, 64)
	if err != nil {
		// malformed hint, treated like no hint at all
		return nil, nil
	}

	d, err := s.donationRepo.FindByID(ctx, snowflake.ID(raw))
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}

	if parsed.PaymentIntentID != "" && d.StripePaymentIntentID == nil {
		if _, err := s.donationRepo.AttachIntentID(ctx, d.ID, parsed.PaymentIntentID); err != nil {
			return nil, err
		}
		intentID := parsed.PaymentIntentID
		d.StripePaymentIntentID = &intentID
	}
	return d, nil
}

func (s *Service) publishEvent(ctx context.Context, eventID string, donation *donationdomain.Donation, status donationdomain.Status) {
	var eventType string
	switch status {
	case donationdomain.StatusSucceeded:
		eventType = events.EventDonationSucceeded
	case donationdomain.StatusFailed:
		eventType = events.EventDonationFailed
	case donationdomain.StatusCanceled:
		eventType = events.EventDonationCanceled
	default:
		return
	}

	payload := events.DonationPayload{
		DonationID:  donation.ID.String(),
		CampaignID:  donation.CampaignID.String(),
		AmountCents: donation.AmountCents,
		Currency:    donation.Currency,
		SourceEvent: eventID,
	}
	err := s.outbox.Publish(ctx, events.Event{
		OrgID:     donation.OrgID,
		Type:      eventType,
		Payload:   payload.ToMap(),
		DedupeKey: eventID,
	})
	if err != nil {
		s.log.Warn("outbox publish failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}

func (s *Service) writeAuditLog(ctx context.Context, eventID, eventType string, donation *donationdomain.Donation, status donationdomain.Status) {
	targetID := donation.ID.String()
	orgID := donation.OrgID
	metadata := map[string]any{
		"event_id":     eventID,
		"event_type":   eventType,
		"campaign_id":  donation.CampaignID.String(),
		"amount_cents": donation.AmountCents,
		"currency":     donation.Currency,
	}
	if err := s.auditSvc.AuditLog(ctx, &orgID, "", nil, "donation."+string(status), "donation", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("event_id", eventID), zap.Error(err))
	}
}
