package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	auditdomain "github.com/MowahidLatif/helping-hands-backend/internal/audit/domain"
	"github.com/MowahidLatif/helping-hands-backend/internal/authorization"
)

// @Summary      Audit Logs
// @Description  List platform audit entries for an organization
// @Tags         audit
// @Produce      json
// @Param        org_id       query  string  true   "Organization ID"
// @Param        action       query  string  false  "Action"
// @Param        target_type  query  string  false  "Target Type"
// @Param        limit        query  int     false  "Limit"
// @Success      200  {object}  []domain.AuditLog
// @Router       /audit-logs [get]
func (s *Server) ListAuditLogs(c *gin.Context) {
	actorID, err := actorUserIDFromHeader(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		OrgID      string `form:"org_id"`
		Action     string `form:"action"`
		TargetType string `form:"target_type"`
		TargetID   string `form:"target_id"`
		CreatedTo  string `form:"created_to"`
		Limit      int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orgID, err := snowflake.ParseString(strings.TrimSpace(query.OrgID))
	if err != nil || orgID == 0 {
		AbortWithError(c, newValidationError("org_id", "invalid_org_id", "invalid org_id"))
		return
	}

	if err := s.authorizeForOrg(c, actorID, orgID, authorization.ObjectAudit, authorization.ActionAuditView); err != nil {
		AbortWithError(c, err)
		return
	}

	filter := auditdomain.ListFilter{
		OrgID:      orgID,
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		Limit:      query.Limit,
	}
	if raw := strings.TrimSpace(query.CreatedTo); raw != "" {
		endAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("created_to", "invalid_created_to", "invalid created_to"))
			return
		}
		filter.EndAt = &endAt
	}

	entries, err := s.auditSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
