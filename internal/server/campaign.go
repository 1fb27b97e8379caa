package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/MowahidLatif/helping-hands-backend/internal/observability/logger"
)

func campaignIDFromPath(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil || id == 0 {
		return 0, newValidationError("id", "invalid_campaign_id", "invalid campaign id")
	}
	return id, nil
}

// @Summary      Campaign Progress
// @Description  Cached fundraising progress for a campaign
// @Tags         campaigns
// @Produce      json
// @Param        id   path      string  true  "Campaign ID"
// @Success      200  {object}  domain.Progress
// @Router       /campaigns/{id}/progress [get]
func (s *Server) GetCampaignProgress(c *gin.Context) {
	campaignID, err := campaignIDFromPath(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	progress, err := s.campaignSvc.Progress(c.Request.Context(), campaignID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": progress})
}

type recentDonation struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Donor       string    `json:"donor"`
	CreatedAt   time.Time `json:"created_at"`
}

// @Summary      Recent Donations
// @Description  Most recent succeeded donations with masked donor identity
// @Tags         campaigns
// @Produce      json
// @Param        id     path   string  true   "Campaign ID"
// @Param        limit  query  int     false  "Limit"
// @Success      200  {object}  []recentDonation
// @Router       /campaigns/{id}/donations/recent [get]
func (s *Server) ListRecentDonations(c *gin.Context) {
	campaignID, err := campaignIDFromPath(c)
	if err != nil {
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

	donations, err := s.donationRepo.RecentSucceeded(c.Request.Context(), campaignID, query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]recentDonation, 0, len(donations))
	for _, d := range donations {
		items = append(items, recentDonation{
			ID:          d.ID.String(),
			AmountCents: d.AmountCents,
			Amount:      d.Amount(),
			Currency:    d.Currency,
			Donor:       logger.MaskEmail(d.Email()),
			CreatedAt:   d.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
