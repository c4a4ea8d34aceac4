package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loyaltix/internal/models"
)

const redeemSuccessMessage = "Points successfully redeemed!"

// AwardPoints - POST /api/loyalty/award
// Начислить баллы за покупку на сумму amount
func (h *Handlers) AwardPoints(c *gin.Context) {
	var req models.AwardPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.services.Loyalty.Award(c.Request.Context(), req.UserID, req.Amount)
	if err != nil {
		handleServiceError(c, err, "Failed to award points")
		return
	}

	c.JSON(http.StatusOK, account)
}

// RedeemPoints - POST /api/loyalty/redeem
func (h *Handlers) RedeemPoints(c *gin.Context) {
	var req models.RedeemPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.services.Loyalty.Redeem(c.Request.Context(), req.UserID, req.Points)
	if err != nil {
		handleServiceError(c, err, "Failed to redeem points")
		return
	}

	c.JSON(http.StatusOK, models.RedeemPointsResponse{
		Message: redeemSuccessMessage,
		Points:  account.Points,
		Tier:    account.Tier,
	})
}

// GetLoyaltyAccount - GET /api/loyalty/:user_id
func (h *Handlers) GetLoyaltyAccount(c *gin.Context) {
	userID, ok := parseInt64(c.Param("user_id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	account, err := h.services.Loyalty.Get(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, "Failed to get loyalty account")
		return
	}

	c.JSON(http.StatusOK, account)
}
