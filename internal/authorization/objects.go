package authorization

// Objects and actions the platform enforces. Draws mutate audited state, so
// they sit behind the admin roles; viewing draw history is open to members.
const (
	ObjectGiveaway = "giveaway"
	ObjectCampaign = "campaign"
	ObjectAudit    = "audit_log"

	ActionGiveawayDraw   = "giveaway.draw"
	ActionGiveawayView   = "giveaway.view"
	ActionCampaignManage = "campaign.manage"
	ActionAuditView      = "audit.view"
)

const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)
