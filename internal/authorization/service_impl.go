package authorization

import (
	"context"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const actorSystem = "system"
const actorUserPrefix = "user:"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.Enforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.Enforcer
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	if actor == actorSystem {
		return nil
	}
	if !strings.HasPrefix(actor, actorUserPrefix) {
		return ErrInvalidActor
	}
	userID := strings.TrimPrefix(actor, actorUserPrefix)
	if _, err := strconv.ParseInt(userID, 10, 64); err != nil {
		return ErrInvalidActor
	}

	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	if strings.TrimSpace(object) == "" {
		return ErrInvalidObject
	}
	if strings.TrimSpace(action) == "" {
		return ErrInvalidAction
	}

	role, err := s.memberRole(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if role == "" {
		return ErrForbidden
	}

	allowed, err := s.enforcer.Enforce(strings.ToUpper(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("actor", actor),
			zap.String("org_id", orgID),
			zap.String("object", object),
			zap.String("action", action),
			zap.String("role", role),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) memberRole(ctx context.Context, orgID, userID string) (string, error) {
	var role string
	err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM organization_members
		 WHERE org_id = ? AND user_id = ?`,
		orgID,
		userID,
	).Scan(&role).Error
	if err != nil {
		return "", err
	}
	return role, nil
}
