package server

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) authorizeForOrg(c *gin.Context, userID snowflake.ID, orgID snowflake.ID, object string, action string) error {
	if s.authzSvc == nil {
		return ErrForbidden
	}
	actor := fmt.Sprintf("user:%s", userID.String())
	return s.authzSvc.Authorize(c.Request.Context(), actor, orgID.String(), strings.TrimSpace(object), strings.TrimSpace(action))
}
