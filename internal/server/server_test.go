package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	auditrepo "github.com/MowahidLatif/helping-hands-backend/internal/audit/repository"
	auditservice "github.com/MowahidLatif/helping-hands-backend/internal/audit/service"
	"github.com/MowahidLatif/helping-hands-backend/internal/authorization"
	campaigncache "github.com/MowahidLatif/helping-hands-backend/internal/campaign/cache"
	campaigndomain "github.com/MowahidLatif/helping-hands-backend/internal/campaign/domain"
	campaignservice "github.com/MowahidLatif/helping-hands-backend/internal/campaign/service"
	"github.com/MowahidLatif/helping-hands-backend/internal/config"
	donationdomain "github.com/MowahidLatif/helping-hands-backend/internal/donation/domain"
	donationrepo "github.com/MowahidLatif/helping-hands-backend/internal/donation/repository"
	"github.com/MowahidLatif/helping-hands-backend/internal/events"
	"github.com/MowahidLatif/helping-hands-backend/internal/eventstore"
	giveawayservice "github.com/MowahidLatif/helping-hands-backend/internal/giveaway/service"
	"github.com/MowahidLatif/helping-hands-backend/internal/realtime"
	webhookservice "github.com/MowahidLatif/helping-hands-backend/internal/webhook/service"
)

type serverFixture struct {
	srv    *Server
	engine *gin.Engine
	db     *gorm.DB
	repo   donationdomain.Repository
	node   *snowflake.Node
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
		`CREATE TABLE IF NOT EXISTS giveaway_logs (
			id INTEGER PRIMARY KEY,
			org_id BIGINT NOT NULL,
			campaign_id BIGINT NOT NULL,
			winner_donation_id BIGINT NOT NULL,
			winner_email TEXT,
			mode TEXT NOT NULL DEFAULT 'per_donation',
			min_amount_cents BIGINT NOT NULL DEFAULT 0,
			population_count INTEGER NOT NULL,
			population_hash TEXT NOT NULL,
			created_by_user_id BIGINT NOT NULL,
			notes TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS organization_members (
			id INTEGER PRIMARY KEY,
			org_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			role TEXT NOT NULL
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

	cfg := config.Config{ServiceName: "helpinghands", Environment: "test"}
	log := zap.NewNop()

	enforcer, err := authorization.NewEnforcer(db)
	if err != nil {
		t.Fatalf("new enforcer: %v", err)
	}
	authzSvc := authorization.NewService(authorization.Params{DB: db, Log: log, Enforcer: enforcer})

	repo := donationrepo.Provide(db)
	campaignSvc := campaignservice.NewService(campaignservice.Params{
		DB:           db,
		Log:          log,
		Cfg:          cfg,
		DonationRepo: repo,
		Cache:        campaigncache.NewMemory(),
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  auditrepo.Provide(),
	})
	outbox := events.NewOutbox(db, node)

	webhookSvc := webhookservice.NewService(webhookservice.Params{
		Log:          log,
		Cfg:          cfg,
		EventStore:   eventstore.NewStore(db),
		DonationRepo: repo,
		CampaignSvc:  campaignSvc,
		Notifier:     realtime.NopNotifier{},
		Outbox:       outbox,
		AuditSvc:     auditSvc,
	})
	giveawaySvc := giveawayservice.NewService(giveawayservice.Params{
		DB:           db,
		Log:          log,
		Cfg:          cfg,
		GenID:        node,
		DonationRepo: repo,
		CampaignSvc:  campaignSvc,
		AuthzSvc:     authzSvc,
		AuditSvc:     auditSvc,
		Outbox:       outbox,
		Picker:       giveawayservice.NewPicker(),
	})

	engine := gin.New()
	srv := NewServer(Params{
		Cfg:          cfg,
		DB:           db,
		Log:          log,
		Engine:       engine,
		WebhookSvc:   webhookSvc,
		CampaignSvc:  campaignSvc,
		DonationRepo: repo,
		GiveawaySvc:  giveawaySvc,
		AuditSvc:     auditSvc,
		AuthzSvc:     authzSvc,
	})
	srv.RegisterRoutes()

	return &serverFixture{srv: srv, engine: engine, db: db, repo: repo, node: node}
}

func (f *serverFixture) seedCampaign(t *testing.T, orgID int64, goal float64) *campaigndomain.Campaign {
	t.Helper()
	now := time.Now().UTC()
	camp := &campaigndomain.Campaign{
		ID: f.node.Generate(), OrgID: snowflake.ID(orgID),
		Title: "Shelter Fund", Slug: "shelter-fund",
		Goal:      goal,
		Status:    campaigndomain.CampaignStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := f.db.Create(camp).Error; err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return camp
}

func (f *serverFixture) seedMember(t *testing.T, orgID, userID int64, role string) {
	t.Helper()
	if err := f.db.Exec(
		`INSERT INTO organization_members (id, org_id, user_id, role) VALUES (?, ?, ?, ?)`,
		userID, orgID, userID, role,
	).Error; err != nil {
		t.Fatalf("insert member: %v", err)
	}
}

func (f *serverFixture) seedSucceeded(t *testing.T, camp *campaigndomain.Campaign, cents int64, email, intentID string) *donationdomain.Donation {
	t.Helper()
	d := &donationdomain.Donation{
		ID: f.node.Generate(), OrgID: camp.OrgID, CampaignID: camp.ID,
		AmountCents: cents,
		Currency:    "usd",
		Status:      donationdomain.StatusSucceeded,
		CreatedAt:   time.Now().UTC(),
	}
	if email != "" {
		d.DonorEmail = &email
	}
	if intentID != "" {
		d.StripePaymentIntentID = &intentID
	}
	if err := f.repo.Create(context.Background(), d); err != nil {
		t.Fatalf("create donation: %v", err)
	}
	return d
}

func (f *serverFixture) do(t *testing.T, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestProgressEndpoint(t *testing.T) {
	f := setupServer(t)
	camp := f.seedCampaign(t, 1, 100.00)
	f.seedSucceeded(t, camp, 2500, "alice@example.com", "pi_1")

	w := f.do(t, http.MethodGet, "/api/campaigns/"+camp.ID.String()+"/progress", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["total_raised"] != 25.00 {
		t.Fatalf("expected total_raised 25.00, got %v", data["total_raised"])
	}
	if data["percent"] != 25.00 {
		t.Fatalf("expected percent 25.00, got %v", data["percent"])
	}
}

func TestProgressEndpointUnknownCampaign(t *testing.T) {
	f := setupServer(t)

	w := f.do(t, http.MethodGet, "/api/campaigns/424242/progress", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/campaigns/not-a-number/progress", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", w.Code)
	}
}

func TestRecentDonationsMaskDonors(t *testing.T) {
	f := setupServer(t)
	camp := f.seedCampaign(t, 1, 100.00)
	f.seedSucceeded(t, camp, 2500, "alice@example.com", "pi_1")

	w := f.do(t, http.MethodGet, "/api/campaigns/"+camp.ID.String()+"/donations/recent", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var envelope struct {
		Data []recentDonation `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("expected one donation, got %d", len(envelope.Data))
	}
	if envelope.Data[0].Donor != "a***e@example.com" {
		t.Fatalf("expected masked donor, got %q", envelope.Data[0].Donor)
	}
	if envelope.Data[0].Amount != 25.00 {
		t.Fatalf("expected 25.00, got %v", envelope.Data[0].Amount)
	}
}

func TestDrawWinnerEndpoint(t *testing.T) {
	f := setupServer(t)
	camp := f.seedCampaign(t, 1, 100.00)
	f.seedMember(t, 1, 100, "ADMIN")
	f.seedSucceeded(t, camp, 2500, "alice@example.com", "pi_1")

	body, _ := json.Marshal(drawWinnerRequest{Mode: "per_donation"})
	w := f.do(t, http.MethodPost, "/api/campaigns/"+camp.ID.String()+"/draw-winner", body, map[string]string{
		HeaderActorUserID: "100",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Data struct {
			Winner struct {
				Donor string `json:"donor"`
			} `json:"winner"`
			Draw struct {
				PopulationCount int `json:"population_count"`
			} `json:"draw"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Winner.Donor != "a***e@example.com" {
		t.Fatalf("expected masked winner, got %q", envelope.Data.Winner.Donor)
	}
	if envelope.Data.Draw.PopulationCount != 1 {
		t.Fatalf("expected population of one, got %d", envelope.Data.Draw.PopulationCount)
	}
}

func TestDrawWinnerRequiresActor(t *testing.T) {
	f := setupServer(t)
	camp := f.seedCampaign(t, 1, 100.00)
	f.seedSucceeded(t, camp, 2500, "alice@example.com", "pi_1")

	body, _ := json.Marshal(drawWinnerRequest{Mode: "per_donation"})
	w := f.do(t, http.MethodPost, "/api/campaigns/"+camp.ID.String()+"/draw-winner", body, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor header, got %d", w.Code)
	}
}

func TestDrawWinnerForbiddenForMember(t *testing.T) {
	f := setupServer(t)
	camp := f.seedCampaign(t, 1, 100.00)
	f.seedMember(t, 1, 200, "MEMBER")
	f.seedSucceeded(t, camp, 2500, "alice@example.com", "pi_1")

	body, _ := json.Marshal(drawWinnerRequest{Mode: "per_donation"})
	w := f.do(t, http.MethodPost, "/api/campaigns/"+camp.ID.String()+"/draw-winner", body, map[string]string{
		HeaderActorUserID: "200",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDrawWinnerValidation(t *testing.T) {
	f := setupServer(t)
	camp := f.seedCampaign(t, 1, 100.00)
	f.seedMember(t, 1, 100, "ADMIN")
	f.seedSucceeded(t, camp, 2500, "alice@example.com", "pi_1")

	body, _ := json.Marshal(drawWinnerRequest{Mode: "every_other_tuesday"})
	w := f.do(t, http.MethodPost, "/api/campaigns/"+camp.ID.String()+"/draw-winner", body, map[string]string{
		HeaderActorUserID: "100",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad mode, got %d", w.Code)
	}

	body, _ = json.Marshal(drawWinnerRequest{Mode: "per_donation"})
	w = f.do(t, http.MethodPost, "/api/campaigns/424242/draw-winner", body, map[string]string{
		HeaderActorUserID: "100",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown campaign, got %d", w.Code)
	}
}

func TestDrawWinnerRateLimited(t *testing.T) {
	f := setupServer(t)
	camp := f.seedCampaign(t, 1, 100.00)
	f.seedMember(t, 1, 100, "ADMIN")
	f.seedSucceeded(t, camp, 2500, "alice@example.com", "pi_1")

	body, _ := json.Marshal(drawWinnerRequest{Mode: "per_donation"})
	headers := map[string]string{HeaderActorUserID: "100"}

	for i := 0; i < 5; i++ {
		w := f.do(t, http.MethodPost, "/api/campaigns/"+camp.ID.String()+"/draw-winner", body, headers)
		if w.Code != http.StatusOK {
			t.Fatalf("draw %d: expected 200, got %d", i, w.Code)
		}
	}

	w := f.do(t, http.MethodPost, "/api/campaigns/"+camp.ID.String()+"/draw-winner", body, headers)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", w.Code)
	}
}

func TestGiveawayLogsEndpoint(t *testing.T) {
	f := setupServer(t)
	camp := f.seedCampaign(t, 1, 100.00)
	f.seedMember(t, 1, 100, "ADMIN")
	f.seedMember(t, 1, 200, "MEMBER")
	f.seedSucceeded(t, camp, 2500, "alice@example.com", "pi_1")

	body, _ := json.Marshal(drawWinnerRequest{Mode: "per_donation"})
	if w := f.do(t, http.MethodPost, "/api/campaigns/"+camp.ID.String()+"/draw-winner", body, map[string]string{
		HeaderActorUserID: "100",
	}); w.Code != http.StatusOK {
		t.Fatalf("draw: expected 200, got %d", w.Code)
	}

	// members may view draw history
	w := f.do(t, http.MethodGet, "/api/campaigns/"+camp.ID.String()+"/giveaway-logs", nil, map[string]string{
		HeaderActorUserID: "200",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for member, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("expected one draw logged, got %d", len(envelope.Data))
	}
	if _, ok := envelope.Data[0]["winner_email"]; ok {
		t.Fatalf("raw winner email must not serialize")
	}

	// outsiders may not
	w = f.do(t, http.MethodGet, "/api/campaigns/"+camp.ID.String()+"/giveaway-logs", nil, map[string]string{
		HeaderActorUserID: "999",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for outsider, got %d", w.Code)
	}
}

func TestAuditLogsEndpoint(t *testing.T) {
	f := setupServer(t)
	camp := f.seedCampaign(t, 1, 100.00)
	f.seedMember(t, 1, 100, "ADMIN")
	f.seedMember(t, 1, 200, "MEMBER")
	f.seedSucceeded(t, camp, 2500, "alice@example.com", "pi_1")

	body, _ := json.Marshal(drawWinnerRequest{Mode: "per_donation"})
	if w := f.do(t, http.MethodPost, "/api/campaigns/"+camp.ID.String()+"/draw-winner", body, map[string]string{
		HeaderActorUserID: "100",
	}); w.Code != http.StatusOK {
		t.Fatalf("draw: expected 200, got %d", w.Code)
	}

	w := f.do(t, http.MethodGet, "/api/audit-logs?org_id=1&action=giveaway.draw", nil, map[string]string{
		HeaderActorUserID: "100",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(envelope.Data))
	}

	// audit history is admin only
	w = f.do(t, http.MethodGet, "/api/audit-logs?org_id=1", nil, map[string]string{
		HeaderActorUserID: "200",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member, got %d", w.Code)
	}
}

func webhookPayload(eventID, eventType, intentID string, amount int64) []byte {
	raw, _ := json.Marshal(map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{"object": map[string]any{
			"id":       intentID,
			"amount":   amount,
			"currency": "usd",
		}},
	})
	return raw
}

func TestWebhookEndpoint(t *testing.T) {
	f := setupServer(t)
	camp := f.seedCampaign(t, 1, 100.00)

	d := &donationdomain.Donation{
		ID: f.node.Generate(), OrgID: 1, CampaignID: camp.ID,
		AmountCents: 2500,
		Currency:    "usd",
		Status:      donationdomain.StatusProcessing,
		CreatedAt:   time.Now().UTC(),
	}
	intent := "pi_hook"
	d.StripePaymentIntentID = &intent
	if err := f.repo.Create(context.Background(), d); err != nil {
		t.Fatalf("create donation: %v", err)
	}

	payload := webhookPayload("evt_1", "payment_intent.succeeded", "pi_hook", 2500)
	w := f.do(t, http.MethodPost, "/webhooks/stripe", payload, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// redelivery acknowledges without reapplying
	w = f.do(t, http.MethodPost, "/webhooks/stripe", payload, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", w.Code)
	}
	var ack struct {
		OK        bool `json:"ok"`
		Duplicate bool `json:"duplicate"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack.OK || !ack.Duplicate {
		t.Fatalf("expected duplicate ack, got %s", w.Body.String())
	}

	// unknown event types are recorded and acknowledged
	w = f.do(t, http.MethodPost, "/webhooks/stripe", webhookPayload("evt_2", "charge.refund.updated", "pi_hook", 2500), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for ignored type, got %d", w.Code)
	}

	// garbage earns a 400 so the processor surfaces the failure
	w = f.do(t, http.MethodPost, "/webhooks/stripe", []byte("{not json"), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	f := setupServer(t)

	w := f.do(t, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
