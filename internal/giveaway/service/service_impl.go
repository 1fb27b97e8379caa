package service

import (
	"context"
	"sort"
	"strings"
	"time"

	auditdomain "github.com/MowahidLatif/helping-hands-backend/internal/audit/domain"
	"github.com/MowahidLatif/helping-hands-backend/internal/authorization"
	campaigndomain "github.com/MowahidLatif/helping-hands-backend/internal/campaign/domain"
	"github.com/MowahidLatif/helping-hands-backend/internal/config"
	donationdomain "github.com/MowahidLatif/helping-hands-backend/internal/donation/domain"
	"github.com/MowahidLatif/helping-hands-backend/internal/events"
	giveawaydomain "github.com/MowahidLatif/helping-hands-backend/internal/giveaway/domain"
	"github.com/MowahidLatif/helping-hands-backend/internal/observability/logger"
	"github.com/MowahidLatif/helping-hands-backend/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config
	GenID        *snowflake.Node
	DonationRepo donationdomain.Repository
	CampaignSvc  campaigndomain.Service
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	Outbox       *events.Outbox
	Picker       giveawaydomain.Picker
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	donationRepo donationdomain.Repository
	campaignSvc  campaigndomain.Service
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	outbox       *events.Outbox
	picker       giveawaydomain.Picker
	metrics      *metrics.PipelineMetrics
}

func NewService(p Params) giveawaydomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("giveaway.service"),
		genID:        p.GenID,
		donationRepo: p.DonationRepo,
		campaignSvc:  p.CampaignSvc,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		outbox:       p.Outbox,
		picker:       p.Picker,
		metrics: metrics.PipelineWithConfig(metrics.Config{
			ServiceName: p.Cfg.ServiceName,
			Environment: p.Cfg.Environment,
		}),
	}
}

func (s *Service) SelectPopulation(ctx context.Context, campaignID snowflake.ID, mode giveawaydomain.Mode, minAmountCents int64) ([]giveawaydomain.PopulationEntry, error) {
	switch mode {
	case giveawaydomain.ModePerDonation:
		return s.perDonationPopulation(ctx, campaignID, minAmountCents)
	case giveawaydomain.ModePerDonor:
		return s.perDonorPopulation(ctx, campaignID, minAmountCents)
	default:
		return nil, giveawaydomain.ErrInvalidMode
	}
}

func (s *Service) perDonationPopulation(ctx context.Context, campaignID snowflake.ID, minAmountCents int64) ([]giveawaydomain.PopulationEntry, error) {
	rows, err := s.donationRepo.ListSucceeded(ctx, campaignID, minAmountCents)
	if err != nil {
		return nil, err
	}
	entries := make([]giveawaydomain.PopulationEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, giveawaydomain.PopulationEntry{
			DonationID:  row.ID,
			DonorKey:    strings.ToLower(row.Email()),
			AmountCents: row.AmountCents,
		})
	}
	return entries, nil
}

// perDonorPopulation merges a donor's succeeded donations into one ticket:
// the amount is the donor's sum, the represented id their earliest donation.
// Grouping happens here rather than in SQL so the earliest-id pairing stays
// portable across stores.
func (s *Service) perDonorPopulation(ctx context.Context, campaignID snowflake.ID, minAmountCents int64) ([]giveawaydomain.PopulationEntry, error) {
	rows, err := s.donationRepo.ListSucceededWithEmail(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	// rows arrive oldest first, so the first sighting of a donor carries
	// their earliest donation id
	byDonor := make(map[string]*giveawaydomain.PopulationEntry, len(rows))
	for i := range rows {
		key := strings.ToLower(rows[i].Email())
		if key == "" {
			continue
		}
		if entry, ok := byDonor[key]; ok {
			entry.AmountCents += rows[i].AmountCents
			continue
		}
		byDonor[key] = &giveawaydomain.PopulationEntry{
			DonationID:  rows[i].ID,
			DonorKey:    key,
			AmountCents: rows[i].AmountCents,
		}
	}

	entries := make([]giveawaydomain.PopulationEntry, 0, len(byDonor))
	for _, entry := range byDonor {
		if entry.AmountCents >= minAmountCents {
			entries = append(entries, *entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DonorKey < entries[j].DonorKey
	})
	return entries, nil
}

func (s *Service) Draw(ctx context.Context, campaignID, actorUserID snowflake.ID, mode giveawaydomain.Mode, minAmountCents int64, notes string) (*giveawaydomain.DrawResult, error) {
	camp, err := s.campaignSvc.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if camp == nil {
		return nil, campaigndomain.ErrNotFound
	}

	actor := "user:" + actorUserID.String()
	if err := s.authzSvc.Authorize(ctx, actor, camp.OrgID.String(), authorization.ObjectGiveaway, authorization.ActionGiveawayDraw); err != nil {
		return nil, err
	}

	population, err := s.SelectPopulation(ctx, campaignID, mode, minAmountCents)
	if err != nil {
		return nil, err
	}
	if len(population) == 0 {
		return nil, giveawaydomain.ErrIneligible
	}

	fingerprint := giveawaydomain.Fingerprint(mode, minAmountCents, population)

	idx, err := s.picker.Pick(len(population))
	if err != nil {
		return nil, err
	}
	ticket := population[idx]

	winner, err := s.donationRepo.FindByID(ctx, ticket.DonationID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := &giveawaydomain.GiveawayLog{
		ID:               s.genID.Generate(),
		OrgID:            camp.OrgID,
		CampaignID:       campaignID,
		WinnerDonationID: ticket.DonationID,
		Mode:             mode,
		MinAmountCents:   minAmountCents,
		PopulationCount:  len(population),
		PopulationHash:   fingerprint,
		CreatedByUserID:  actorUserID,
		CreatedAt:        now,
	}
	if winner != nil {
		entry.WinnerEmail = winner.DonorEmail
	}
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		entry.Notes = &trimmed
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}

	s.metrics.IncGiveawayDraw(string(mode))
	s.writeAuditLog(ctx, actorUserID, entry)
	s.publishEvent(ctx, actorUserID, entry)

	detail := s.winnerDetail(camp, ticket, winner)
	s.log.Info("giveaway drawn",
		zap.String("campaign_id", campaignID.String()),
		zap.String("giveaway_log_id", entry.ID.String()),
		zap.String("mode", string(mode)),
		zap.Int("population_count", len(population)),
	)
	return &giveawaydomain.DrawResult{Winner: detail, Log: entry}, nil
}

// winnerDetail serializes the winning donation with a masked donor. When the
// full row is gone (anonymized upstream) the ticket still identifies it.
func (s *Service) winnerDetail(camp *campaigndomain.Campaign, ticket giveawaydomain.PopulationEntry, winner *donationdomain.Donation) giveawaydomain.WinnerDetail {
	if winner == nil {
		return giveawaydomain.WinnerDetail{
			DonationID:  ticket.DonationID.String(),
			CampaignID:  camp.ID.String(),
			OrgID:       camp.OrgID.String(),
			AmountCents: ticket.AmountCents,
			Amount:      float64(ticket.AmountCents) / 100.0,
			Currency:    "usd",
			Donor:       logger.MaskEmail(ticket.DonorKey),
		}
	}
	createdAt := winner.CreatedAt
	return giveawaydomain.WinnerDetail{
		DonationID:  winner.ID.String(),
		CampaignID:  winner.CampaignID.String(),
		OrgID:       winner.OrgID.String(),
		AmountCents: winner.AmountCents,
		Amount:      winner.Amount(),
		Currency:    winner.Currency,
		Donor:       logger.MaskEmail(winner.Email()),
		CreatedAt:   &createdAt,
	}
}

func (s *Service) ListLogs(ctx context.Context, campaignID snowflake.ID, limit int) ([]*giveawaydomain.GiveawayLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var logs []*giveawaydomain.GiveawayLog
	err := s.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Service) writeAuditLog(ctx context.Context, actorUserID snowflake.ID, entry *giveawaydomain.GiveawayLog) {
	actorID := actorUserID.String()
	targetID := entry.ID.String()
	orgID := entry.OrgID
	metadata := map[string]any{
		"campaign_id":        entry.CampaignID.String(),
		"winner_donation_id": entry.WinnerDonationID.String(),
		"mode":               string(entry.Mode),
		"min_amount_cents":   entry.MinAmountCents,
		"population_count":   entry.PopulationCount,
		"population_hash":    entry.PopulationHash,
	}
	if err := s.auditSvc.AuditLog(ctx, &orgID, string(auditdomain.ActorTypeUser), &actorID, "giveaway.draw", "giveaway_log", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("giveaway_log_id", targetID), zap.Error(err))
	}
}

func (s *Service) publishEvent(ctx context.Context, actorUserID snowflake.ID, entry *giveawaydomain.GiveawayLog) {
	payload := events.GiveawayDrawnPayload{
		GiveawayLogID:    entry.ID.String(),
		CampaignID:       entry.CampaignID.String(),
		WinnerDonationID: entry.WinnerDonationID.String(),
		Mode:             string(entry.Mode),
		PopulationCount:  entry.PopulationCount,
		PopulationHash:   entry.PopulationHash,
		CreatedByUserID:  actorUserID.String(),
	}
	err := s.outbox.Publish(ctx, events.Event{
		OrgID:     entry.OrgID,
		Type:      events.EventGiveawayDrawn,
		Payload:   payload.ToMap(),
		DedupeKey: entry.ID.String(),
	})
	if err != nil {
		s.log.Warn("outbox publish failed", zap.String("giveaway_log_id", entry.ID.String()), zap.Error(err))
	}
}
