package authorization

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// seedPolicies is the role capability matrix. AddPolicy is idempotent, so
// re-seeding on startup is safe.
var seedPolicies = [][3]string{
	{RoleAdmin, ObjectGiveaway, ActionGiveawayDraw},
	{RoleAdmin, ObjectGiveaway, ActionGiveawayView},
	{RoleAdmin, ObjectCampaign, ActionCampaignManage},
	{RoleAdmin, ObjectAudit, ActionAuditView},
	{RoleMember, ObjectGiveaway, ActionGiveawayView},
}

// NewEnforcer builds the casbin enforcer backed by the casbin_rule table and
// seeds the role policies.
func NewEnforcer(db *gorm.DB) (*casbin.Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}

	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}

	// owners hold every admin capability
	if _, err := enforcer.AddGroupingPolicy(RoleOwner, RoleAdmin); err != nil {
		return nil, err
	}
	for _, policy := range seedPolicies {
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return nil, err
		}
	}
	return enforcer, nil
}
