package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	campaigndomain "github.com/MowahidLatif/helping-hands-backend/internal/campaign/domain"
	donationdomain "github.com/MowahidLatif/helping-hands-backend/internal/donation/domain"
	organizationdomain "github.com/MowahidLatif/helping-hands-backend/internal/organization/domain"
)

const (
	defaultOrgName    = "Helping Hands"
	defaultOrgSlug    = "main"
	defaultAdminEmail = "admin@helpinghands.local"
	defaultAdminName  = "Platform Admin"

	demoCampaignTitle = "Community Shelter Fund"
	demoCampaignSlug  = "community-shelter-fund"
)

// EnsureMainOrg seeds the default organization for startup bootstrap.
func EnsureMainOrg(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureMainOrgTx(ctx, tx, node)
		return err
	})
}

// EnsureDemoData seeds the default org, an owner account and a small
// campaign with a handful of succeeded donations. Intended for local
// development only, gated on the seed_demo_data flag.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureMainOrgTx(ctx, tx, node)
		if err != nil {
			return err
		}

		user, err := ensureAdminTx(ctx, tx, node)
		if err != nil {
			return err
		}

		if err := ensureMembershipTx(ctx, tx, node, org.ID, user.ID); err != nil {
			return err
		}

		camp, err := ensureDemoCampaignTx(ctx, tx, node, org.ID)
		if err != nil {
			return err
		}

		return ensureDemoDonationsTx(ctx, tx, node, org.ID, camp.ID)
	})
}

func ensureMainOrgTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := tx.WithContext(ctx).Where("slug = ?", defaultOrgSlug).First(&org).Error
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return org, err
	}
	now := time.Now().UTC()
	org = organizationdomain.Organization{
		ID:        node.Generate(),
		Name:      defaultOrgName,
		Slug:      defaultOrgSlug,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
		return org, err
	}
	return org, nil
}

func ensureAdminTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (organizationdomain.User, error) {
	var user organizationdomain.User
	err := tx.WithContext(ctx).Where("email = ?", strings.ToLower(defaultAdminEmail)).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}
	now := time.Now().UTC()
	user = organizationdomain.User{
		ID:          node.Generate(),
		Email:       strings.ToLower(defaultAdminEmail),
		DisplayName: defaultAdminName,
		IsDefault:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return user, err
	}
	return user, nil
}

func ensureMembershipTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID, userID snowflake.ID) error {
	var member organizationdomain.OrganizationMember
	err := tx.WithContext(ctx).Where("org_id = ? AND user_id = ?", orgID, userID).First(&member).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	member = organizationdomain.OrganizationMember{
		ID:        node.Generate(),
		OrgID:     orgID,
		UserID:    userID,
		Role:      organizationdomain.RoleOwner,
		CreatedAt: time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&member).Error
}

func ensureDemoCampaignTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) (campaigndomain.Campaign, error) {
	var camp campaigndomain.Campaign
	err := tx.WithContext(ctx).Where("org_id = ? AND slug = ?", orgID, demoCampaignSlug).First(&camp).Error
	if err == nil {
		return camp, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return camp, err
	}
	now := time.Now().UTC()
	camp = campaigndomain.Campaign{
		ID:        node.Generate(),
		OrgID:     orgID,
		Title:     demoCampaignTitle,
		Slug:      demoCampaignSlug,
		Goal:      5000.00,
		Status:    campaigndomain.CampaignStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&camp).Error; err != nil {
		return camp, err
	}
	return camp, nil
}

func ensureDemoDonationsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID, campaignID snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&donationdomain.Donation{}).
		Where("campaign_id = ?", campaignID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	type demoDonation struct {
		cents int64
		email string
	}
	demos := []demoDonation{
		{2500, "alice@example.com"},
		{5000, "bob@example.com"},
		{1000, "alice@example.com"},
		{7500, ""},
	}

	now := time.Now().UTC()
	total := 0.0
	for i, demo := range demos {
		d := donationdomain.Donation{
			ID:          node.Generate(),
			OrgID:       orgID,
			CampaignID:  campaignID,
			AmountCents: demo.cents,
			Currency:    "usd",
			Status:      donationdomain.StatusSucceeded,
			CreatedAt:   now.Add(time.Duration(i) * time.Minute),
			UpdatedAt:   now.Add(time.Duration(i) * time.Minute),
		}
		if demo.email != "" {
			email := demo.email
			d.DonorEmail = &email
		}
		if err := tx.WithContext(ctx).Create(&d).Error; err != nil {
			return err
		}
		total += d.Amount()
	}

	return tx.WithContext(ctx).Exec(
		`UPDATE campaigns SET total_raised = ?, updated_at = ? WHERE id = ?`,
		total, now, campaignID,
	).Error
}
