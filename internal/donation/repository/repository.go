package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	donationdomain "github.com/MowahidLatif/helping-hands-backend/internal/donation/domain"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) donationdomain.Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, d *donationdomain.Donation) error {
	if d == nil {
		return errors.New("missing_donation")
	}
	if d.AmountCents <= 0 {
		return donationdomain.ErrInvalidAmount
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = donationdomain.StatusInitiated
	}
	if d.Currency == "" {
		d.Currency = "usd"
	}
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *Repository) FindByID(ctx context.Context, id snowflake.ID) (*donationdomain.Donation, error) {
	var d donationdomain.Donation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) FindByIntentID(ctx context.Context, intentID string) (*donationdomain.Donation, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, nil
	}
	var d donationdomain.Donation
	err := r.db.WithContext(ctx).
		Where("stripe_payment_intent_id = ?", intentID).
		Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) AttachIntentID(ctx context.Context, id snowflake.ID, intentID string) (bool, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return false, nil
	}
	result := r.db.WithContext(ctx).Exec(
		`UPDATE donations
		 SET stripe_payment_intent_id = ?, updated_at = ?
		 WHERE id = ? AND stripe_payment_intent_id IS NULL`,
		intentID,
		time.Now().UTC(),
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) SetStatusByIntentID(ctx context.Context, intentID string, status donationdomain.Status) (int64, error) {
	if status == "" {
		return 0, donationdomain.ErrInvalidStatus
	}
	result := r.db.WithContext(ctx).Exec(
		`UPDATE donations
		 SET status = ?, updated_at = ?
		 WHERE stripe_payment_intent_id = ?`,
		status,
		time.Now().UTC(),
		strings.TrimSpace(intentID),
	)
	return result.RowsAffected, result.Error
}

func (r *Repository) SetStatusByID(ctx context.Context, id snowflake.ID, status donationdomain.Status) (int64, error) {
	if status == "" {
		return 0, donationdomain.ErrInvalidStatus
	}
	result := r.db.WithContext(ctx).Exec(
		`UPDATE donations
		 SET status = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	)
	return result.RowsAffected, result.Error
}

func (r *Repository) ListSucceeded(ctx context.Context, campaignID snowflake.ID, minAmountCents int64) ([]donationdomain.Donation, error) {
	var rows []donationdomain.Donation
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND status = ? AND amount_cents >= ?",
			campaignID, donationdomain.StatusSucceeded, minAmountCents).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListSucceededWithEmail(ctx context.Context, campaignID snowflake.ID) ([]donationdomain.Donation, error) {
	var rows []donationdomain.Donation
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND status = ? AND donor_email IS NOT NULL AND donor_email <> ''",
			campaignID, donationdomain.StatusSucceeded).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) RecentSucceeded(ctx context.Context, campaignID snowflake.ID, limit int) ([]donationdomain.Donation, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var rows []donationdomain.Donation
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND status = ?", campaignID, donationdomain.StatusSucceeded).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) CountAndLastSucceeded(ctx context.Context, campaignID snowflake.ID) (int64, *time.Time, error) {
	var row struct {
		Count  int64
		LastAt *time.Time
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) AS count, MAX(created_at) AS last_at
		 FROM donations
		 WHERE campaign_id = ? AND status = ?`,
		campaignID,
		donationdomain.StatusSucceeded,
	).Scan(&row).Error
	if err != nil {
		return 0, nil, err
	}
	return row.Count, row.LastAt, nil
}
