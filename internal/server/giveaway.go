package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/MowahidLatif/helping-hands-backend/internal/authorization"
	giveawaydomain "github.com/MowahidLatif/helping-hands-backend/internal/giveaway/domain"
)

func actorUserIDFromHeader(c *gin.Context) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.GetHeader(HeaderActorUserID))
	if raw == "" {
		return 0, ErrUnauthorized
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, ErrUnauthorized
	}
	return id, nil
}

type drawWinnerRequest struct {
	Mode           string `json:"mode"`
	MinAmountCents int64  `json:"min_amount_cents"`
	Notes          string `json:"notes"`
}

// @Summary      Draw Winner
// @Description  Run an audited random draw over a campaign's donors
// @Tags         giveaways
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "Campaign ID"
// @Param        request  body  drawWinnerRequest  true  "Draw Request"
// @Success      200  {object}  domain.DrawResult
// @Router       /campaigns/{id}/draw-winner [post]
func (s *Server) DrawWinner(c *gin.Context) {
	campaignID, err := campaignIDFromPath(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actorID, err := actorUserIDFromHeader(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !s.drawLimiter.Allow(actorID.String() + "|" + campaignID.String()) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": gin.H{"code": "rate_limited", "message": "too many draw attempts, slow down"},
		})
		return
	}

	var req drawWinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	mode, err := giveawaydomain.ParseMode(req.Mode)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if req.MinAmountCents < 0 {
		AbortWithError(c, newValidationError("min_amount_cents", "negative", "min_amount_cents must not be negative"))
		return
	}

	result, err := s.giveawaySvc.Draw(c.Request.Context(), campaignID, actorID, mode, req.MinAmountCents, strings.TrimSpace(req.Notes))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// @Summary      Giveaway Logs
// @Description  List past draws for a campaign
// @Tags         giveaways
// @Produce      json
// @Param        id     path   string  true   "Campaign ID"
// @Param        limit  query  int     false  "Limit"
// @Success      200  {object}  []domain.GiveawayLog
// @Router       /campaigns/{id}/giveaway-logs [get]
func (s *Server) ListGiveawayLogs(c *gin.Context) {
	campaignID, err := campaignIDFromPath(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actorID, err := actorUserIDFromHeader(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	camp, err := s.campaignSvc.FindByID(c.Request.Context(), campaignID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if camp == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	if err := s.authorizeForOrg(c, actorID, camp.OrgID, authorization.ObjectGiveaway, authorization.ActionGiveawayView); err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	logs, err := s.giveawaySvc.ListLogs(c.Request.Context(), campaignID, query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}
