package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds the raw payload read. Stripe events are far smaller;
// anything larger is hostile.
const maxWebhookBody = 1 << 20

// HandleStripeWebhook feeds one processor delivery through the reconciler.
// Replays and reorderings are acknowledged with 200 so the processor stops
// retrying; only verification and parse failures earn a 400.
func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.webhookSvc.Handle(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	switch {
	case result.Duplicate:
		c.JSON(http.StatusOK, gin.H{"ok": true, "duplicate": true})
	case result.Ignored != "":
		c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": result.Ignored})
	case result.Orphan:
		c.JSON(http.StatusOK, gin.H{"ok": true, "orphan": true})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
