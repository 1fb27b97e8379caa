package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	auditrepo "github.com/MowahidLatif/helping-hands-backend/internal/audit/repository"
	auditservice "github.com/MowahidLatif/helping-hands-backend/internal/audit/service"
	campaigncache "github.com/MowahidLatif/helping-hands-backend/internal/campaign/cache"
	campaigndomain "github.com/MowahidLatif/helping-hands-backend/internal/campaign/domain"
	campaignservice "github.com/MowahidLatif/helping-hands-backend/internal/campaign/service"
	"github.com/MowahidLatif/helping-hands-backend/internal/config"
	donationdomain "github.com/MowahidLatif/helping-hands-backend/internal/donation/domain"
	donationrepo "github.com/MowahidLatif/helping-hands-backend/internal/donation/repository"
	"github.com/MowahidLatif/helping-hands-backend/internal/events"
	"github.com/MowahidLatif/helping-hands-backend/internal/eventstore"
	"github.com/MowahidLatif/helping-hands-backend/internal/realtime"
	webhookdomain "github.com/MowahidLatif/helping-hands-backend/internal/webhook/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	deltas []realtime.DonationDelta
}

func (n *recordingNotifier) NotifyDonation(_ context.Context, delta realtime.DonationDelta) error {
	n.deltas = append(n.deltas, delta)
	return nil
}

type pipeline struct {
	svc      webhookdomain.Service
	db       *gorm.DB
	repo     donationdomain.Repository
	campaign campaigndomain.Service
	notifier *recordingNotifier
	node     *snowflake.Node
}

func setupPipeline(t *testing.T, secret string) *pipeline {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS processed_events (
			event_id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload TEXT,
			received_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS campaigns (
			id INTEGER PRIMARY KEY,
			org_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			goal NUMERIC(12,2) NOT NULL DEFAULT 0,
			total_raised NUMERIC(12,2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'draft',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS donations (
			id INTEGER PRIMARY KEY,
			org_id BIGINT NOT NULL,
			campaign_id BIGINT NOT NULL,
			amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
			currency TEXT NOT NULL DEFAULT 'usd',
			donor_email TEXT,
			status TEXT NOT NULL DEFAULT 'initiated',
			stripe_payment_intent_id TEXT UNIQUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS donation_events (
			id INTEGER PRIMARY KEY,
			org_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT,
			published BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL,
			UNIQUE(org_id, dedupe_key)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id INTEGER PRIMARY KEY,
			org_id BIGINT,
			actor_type TEXT NOT NULL,
			actor_id TEXT,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT,
			metadata TEXT,
			ip_address TEXT,
			user_agent TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	cfg := config.Config{
		ServiceName:         "helpinghands",
		Environment:         "test",
		StripeWebhookSecret: secret,
	}
	repo := donationrepo.Provide(db)
	campaignSvc := campaignservice.NewService(campaignservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		Cfg:          cfg,
		DonationRepo: repo,
		Cache:        campaigncache.NewMemory(),
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(),
	})
	notifier := &recordingNotifier{}

	svc := NewService(Params{
		Log:          zap.NewNop(),
		Cfg:          cfg,
		EventStore:   eventstore.NewStore(db),
		DonationRepo: repo,
		CampaignSvc:  campaignSvc,
		Notifier:     notifier,
		Outbox:       events.NewOutbox(db, node),
		AuditSvc:     auditSvc,
	})

	return &pipeline{
		svc:      svc,
		db:       db,
		repo:     repo,
		campaign: campaignSvc,
		notifier: notifier,
		node:     node,
	}
}

func (p *pipeline) seedCampaign(t *testing.T, goal float64) *campaigndomain.Campaign {
	t.Helper()
	now := time.Now().UTC()
	camp := &campaigndomain.Campaign{
		ID: p.node.Generate(), OrgID: 1,
		Title: "Test", Slug: "test",
		Goal:      goal,
		Status:    campaigndomain.CampaignStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := p.db.Create(camp).Error; err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return camp
}

func (p *pipeline) seedDonation(t *testing.T, campaignID snowflake.ID, cents int64, email, intentID string) *donationdomain.Donation {
	t.Helper()
	d := &donationdomain.Donation{
		ID: p.node.Generate(), OrgID: 1, CampaignID: campaignID,
		AmountCents: cents,
		Currency:    "usd",
		CreatedAt:   time.Now().UTC(),
	}
	if email != "" {
		d.DonorEmail = &email
	}
	if intentID != "" {
		d.StripePaymentIntentID = &intentID
	}
	if err := p.repo.Create(context.Background(), d); err != nil {
		t.Fatalf("create donation: %v", err)
	}
	return d
}

func eventPayload(eventID, eventType, intentID, donationID string, amount int64) []byte {
	object := map[string]any{
		"id":       intentID,
		"amount":   amount,
		"currency": "usd",
	}
	if donationID != "" {
		object["metadata"] = map[string]string{"donation_id": donationID}
	}
	raw, _ := json.Marshal(map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{"object": object},
	})
	return raw
}

func TestHandleAppliesSucceededEvent(t *testing.T) {
	p := setupPipeline(t, "")
	ctx := context.Background()

	camp := p.seedCampaign(t, 100.00)
	d := p.seedDonation(t, camp.ID, 2500, "alice@example.com", "pi_123")

	payload := eventPayload("evt_1", webhookdomain.EventPaymentSucceeded, "pi_123", "", 2500)
	result, err := p.svc.Handle(ctx, payload, http.Header{})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !result.Applied || result.Status != donationdomain.StatusSucceeded {
		t.Fatalf("expected applied succeeded, got %+v", result)
	}
	if result.TotalRaised != 25.00 {
		t.Fatalf("expected total 25.00, got %v", result.TotalRaised)
	}

	got, err := p.repo.FindByID(ctx, d.ID)
	if err != nil || got == nil {
		t.Fatalf("find: %v, %v", got, err)
	}
	if got.Status != donationdomain.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", got.Status)
	}

	if len(p.notifier.deltas) != 1 {
		t.Fatalf("expected one realtime delta, got %d", len(p.notifier.deltas))
	}
	delta := p.notifier.deltas[0]
	if delta.Donor != "a***e@example.com" {
		t.Fatalf("expected masked donor, got %q", delta.Donor)
	}
	if delta.AmountCents != 2500 || delta.TotalRaised != 25.00 {
		t.Fatalf("unexpected delta: %+v", delta)
	}
}

func TestHandleDuplicateDelivery(t *testing.T) {
	p := setupPipeline(t, "")
	ctx := context.Background()

	camp := p.seedCampaign(t, 100.00)
	p.seedDonation(t, camp.ID, 2500, "", "pi_dup")

	payload := eventPayload("evt_dup", webhookdomain.EventPaymentSucceeded, "pi_dup", "", 2500)

	first, err := p.svc.Handle(ctx, payload, http.Header{})
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if !first.Applied {
		t.Fatalf("expected first delivery applied, got %+v", first)
	}

	second, err := p.svc.Handle(ctx, payload, http.Header{})
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !second.Duplicate || second.Applied {
		t.Fatalf("expected duplicate no-op, got %+v", second)
	}

	if len(p.notifier.deltas) != 1 {
		t.Fatalf("duplicate delivery must not notify again, got %d deltas", len(p.notifier.deltas))
	}

	var count int64
	if err := p.db.Raw(`SELECT COUNT(*) FROM processed_events`).Scan(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stored event, got %d", count)
	}
}

func TestHandleIgnoresUnknownEventType(t *testing.T) {
	p := setupPipeline(t, "")
	ctx := context.Background()

	payload := eventPayload("evt_ref", "charge.refunded", "pi_x", "", 100)
	result, err := p.svc.Handle(ctx, payload, http.Header{})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Ignored != "charge.refunded" {
		t.Fatalf("expected ignored charge.refunded, got %+v", result)
	}

	// ignored events still hit the idempotency barrier
	again, err := p.svc.Handle(ctx, payload, http.Header{})
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !again.Duplicate {
		t.Fatalf("expected duplicate on redelivery, got %+v", again)
	}
}

func TestHandleOrphanEvent(t *testing.T) {
	p := setupPipeline(t, "")

	payload := eventPayload("evt_orphan", webhookdomain.EventPaymentSucceeded, "pi_unknown", "", 500)
	result, err := p.svc.Handle(context.Background(), payload, http.Header{})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !result.Orphan || result.Applied {
		t.Fatalf("expected acknowledged orphan, got %+v", result)
	}
	if len(p.notifier.deltas) != 0 {
		t.Fatalf("orphan must not notify")
	}
}

func TestHandleMetadataFallbackAttachesIntent(t *testing.T) {
	p := setupPipeline(t, "")
	ctx := context.Background()

	camp := p.seedCampaign(t, 100.00)
	d := p.seedDonation(t, camp.ID, 1000, "", "")

	payload := eventPayload("evt_meta", webhookdomain.EventPaymentSucceeded, "pi_late", d.ID.String(), 1000)
	result, err := p.svc.Handle(ctx, payload, http.Header{})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !result.Applied {
		t.Fatalf("expected applied via metadata hint, got %+v", result)
	}

	got, err := p.repo.FindByIntentID(ctx, "pi_late")
	if err != nil || got == nil {
		t.Fatalf("expected intent attached: %v, %v", got, err)
	}
	if got.ID != d.ID {
		t.Fatalf("intent attached to wrong donation")
	}
}

func TestHandleFailedEventDoesNotNotify(t *testing.T) {
	p := setupPipeline(t, "")
	ctx := context.Background()

	camp := p.seedCampaign(t, 100.00)
	d := p.seedDonation(t, camp.ID, 2000, "", "pi_fail")

	payload := eventPayload("evt_fail", webhookdomain.EventPaymentFailed, "pi_fail", "", 2000)
	result, err := p.svc.Handle(ctx, payload, http.Header{})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !result.Applied || result.Status != donationdomain.StatusFailed {
		t.Fatalf("expected applied failed, got %+v", result)
	}
	if result.TotalRaised != 0 {
		t.Fatalf("failed donation must not raise the total, got %v", result.TotalRaised)
	}
	if len(p.notifier.deltas) != 0 {
		t.Fatalf("failed transition must not notify")
	}

	got, _ := p.repo.FindByID(ctx, d.ID)
	if got.Status != donationdomain.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestHandleBadPayload(t *testing.T) {
	p := setupPipeline(t, "")

	_, err := p.svc.Handle(context.Background(), []byte("not json"), http.Header{})
	if !errors.Is(err, webhookdomain.ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}

	_, err = p.svc.Handle(context.Background(), []byte(`{"data":{}}`), http.Header{})
	if !errors.Is(err, webhookdomain.ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload for missing type, got %v", err)
	}
}

func signPayload(secret string, payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestHandleSignatureVerification(t *testing.T) {
	const secret = "whsec_test"
	p := setupPipeline(t, secret)
	ctx := context.Background()

	camp := p.seedCampaign(t, 100.00)
	p.seedDonation(t, camp.ID, 2500, "", "pi_signed")

	payload := eventPayload("evt_signed", webhookdomain.EventPaymentSucceeded, "pi_signed", "", 2500)

	headers := http.Header{}
	headers.Set("Stripe-Signature", "t=1,v1=deadbeef")
	_, err := p.svc.Handle(ctx, payload, headers)
	if !errors.Is(err, webhookdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	headers.Set("Stripe-Signature", signPayload(secret, payload, time.Now()))
	result, err := p.svc.Handle(ctx, payload, headers)
	if err != nil {
		t.Fatalf("signed delivery: %v", err)
	}
	if !result.Applied {
		t.Fatalf("expected signed delivery applied, got %+v", result)
	}
}
