package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/skupulse/internal/models"
	"github.com/irfndi/skupulse/internal/services"
	"github.com/irfndi/skupulse/internal/utils"
)

// HourlyHandler serves the hour-of-day order comparison.
type HourlyHandler struct {
	analytics    services.AnalyticsServiceInterface
	clock        Clock
	lookbackDays int
	logger       *logrus.Logger
}

// CompareRequest carries raw order-feed records.
type CompareRequest struct {
	Orders []models.OrderRecord `json:"orders" binding:"required"`
}

func NewHourlyHandler(analytics services.AnalyticsServiceInterface, clock Clock, lookbackDays int, logger *logrus.Logger) *HourlyHandler {
	if lookbackDays < 2 {
		lookbackDays = 2
	}
	return &HourlyHandler{
		analytics:    analytics,
		clock:        clock,
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

// GetHourly compares the two latest dates with orders between from and to.
// Both default to a window of lookbackDays ending today.
func (h *HourlyHandler) GetHourly(c *gin.Context) {
	to, err := parseDateParam(c, "to", h.clock.Today())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	from, err := parseDateParam(c, "from", to.AddDate(0, 0, -(h.lookbackDays-1)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if to.Before(from) {
		respondError(c, h.logger, utils.NewValidationError("from must not be after to"))
		return
	}

	result, err := h.analytics.CompareHourly(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Compare runs a comparison over the orders in the request body.
func (h *HourlyHandler) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, invalidBody(err))
		return
	}

	result, err := h.analytics.CompareOrders(c.Request.Context(), req.Orders)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
