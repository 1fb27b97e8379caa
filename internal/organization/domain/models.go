package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Organization is the tenant boundary. Every campaign, donation and audit
// row hangs off one org.
type Organization struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Slug      string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	IsDefault bool         `json:"is_default" gorm:"not null;default:false"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// User identifies a platform operator. Authentication lives upstream; this
// row only anchors memberships and audit attribution.
type User struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	Email       string       `json:"email" gorm:"type:text;not null;uniqueIndex"`
	DisplayName string       `json:"display_name" gorm:"type:text;not null"`
	IsDefault   bool         `json:"is_default" gorm:"not null;default:false"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// OrganizationMember binds a user to an org with a role the enforcer maps
// onto permissions.
type OrganizationMember struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	OrgID     snowflake.ID `json:"org_id" gorm:"not null;uniqueIndex:idx_org_member"`
	UserID    snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:idx_org_member"`
	Role      string       `json:"role" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (OrganizationMember) TableName() string { return "organization_members" }
