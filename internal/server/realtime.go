package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandleWebsocket upgrades the connection and hands it to the hub. Clients
// pick campaigns with {"action":"join","campaign_id":"..."} frames.
func (s *Server) HandleWebsocket(c *gin.Context) {
	if s.hub == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	if err := s.hub.HandleConnection(c.Writer, c.Request); err != nil {
		// the upgrade already wrote its own response
		s.log.Warn("websocket upgrade failed", zap.Error(err))
	}
}
