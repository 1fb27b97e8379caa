package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	campaigndomain "github.com/MowahidLatif/helping-hands-backend/internal/campaign/domain"
	"github.com/MowahidLatif/helping-hands-backend/internal/config"
	donationdomain "github.com/MowahidLatif/helping-hands-backend/internal/donation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config
	DonationRepo donationdomain.Repository
	Cache        campaigndomain.ProgressCache
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	donationRepo donationdomain.Repository
	cache        campaigndomain.ProgressCache
	progressTTL  time.Duration
}

func NewService(p Params) campaigndomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("campaign.service"),
		donationRepo: p.DonationRepo,
		cache:        p.Cache,
		progressTTL:  p.Cfg.ProgressCacheTTL(),
	}
}

func (s *Service) FindByID(ctx context.Context, id snowflake.ID) (*campaigndomain.Campaign, error) {
	var c campaigndomain.Campaign
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RecomputeTotal derives total_raised inside one UPDATE with an aggregate
// subselect, so concurrent recomputations for the same campaign serialize
// in the store instead of lost-update racing each other.
func (s *Service) RecomputeTotal(ctx context.Context, campaignID snowflake.ID) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).Exec(
			`UPDATE campaigns
			 SET total_raised = COALESCE((
			        SELECT SUM(amount_cents)
			        FROM donations
			        WHERE campaign_id = campaigns.id AND status = ?
			     ), 0) / 100.0,
			     updated_at = ?
			 WHERE id = ?`,
			donationdomain.StatusSucceeded,
			time.Now().UTC(),
			campaignID,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return campaigndomain.ErrNotFound
		}
		return tx.WithContext(ctx).Raw(
			`SELECT total_raised FROM campaigns WHERE id = ?`,
			campaignID,
		).Scan(&total).Error
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) Progress(ctx context.Context, campaignID snowflake.ID) (campaigndomain.Progress, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, campaignID); ok {
			return cached, nil
		}
	}

	camp, err := s.FindByID(ctx, campaignID)
	if err != nil {
		return campaigndomain.Progress{}, err
	}
	if camp == nil {
		return campaigndomain.Progress{}, campaigndomain.ErrNotFound
	}

	count, lastAt, err := s.donationRepo.CountAndLastSucceeded(ctx, campaignID)
	if err != nil {
		return campaigndomain.Progress{}, err
	}

	percent := 0.0
	if camp.Goal > 0 {
		percent = math.Round(math.Min(100.0, camp.TotalRaised/camp.Goal*100.0)*100) / 100
	}

	progress := campaigndomain.Progress{
		CampaignID:     campaignID.String(),
		Goal:           camp.Goal,
		TotalRaised:    camp.TotalRaised,
		Percent:        percent,
		DonationsCount: count,
		LastDonationAt: lastAt,
	}
	if s.cache != nil {
		s.cache.Set(ctx, campaignID, progress, s.progressTTL)
	}
	return progress, nil
}

func (s *Service) InvalidateProgress(ctx context.Context, campaignID snowflake.ID) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(ctx, campaignID)
}
