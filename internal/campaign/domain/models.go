package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CampaignStatus is the campaign lifecycle state.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusArchived  CampaignStatus = "archived"
)

// Campaign owns donations. TotalRaised is derived: it must always equal the
// sum of succeeded donation amounts, scaled from minor units, and is only
// ever written by the recomputer.
type Campaign struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID   `json:"org_id" gorm:"not null;index"`
	Title       string         `json:"title" gorm:"type:text;not null"`
	Slug        string         `json:"slug" gorm:"type:text;not null"`
	Goal        float64        `json:"goal" gorm:"type:numeric(12,2);not null;default:0"`
	TotalRaised float64        `json:"total_raised" gorm:"type:numeric(12,2);not null;default:0"`
	Status      CampaignStatus `json:"status" gorm:"type:text;not null;default:draft"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Campaign) TableName() string { return "campaigns" }

// Progress is the public read model for a campaign's funding state.
type Progress struct {
	CampaignID     string     `json:"campaign_id"`
	Goal           float64    `json:"goal"`
	TotalRaised    float64    `json:"total_raised"`
	Percent        float64    `json:"percent"`
	DonationsCount int64      `json:"donations_count"`
	LastDonationAt *time.Time `json:"last_donation_at"`
}
