package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/skupulse/internal/services"
	"github.com/irfndi/skupulse/internal/utils"
)

// ReferenceHandler exposes the SKU reference lookup.
type ReferenceHandler struct {
	analytics services.AnalyticsServiceInterface
	logger    *logrus.Logger
}

func NewReferenceHandler(analytics services.AnalyticsServiceInterface, logger *logrus.Logger) *ReferenceHandler {
	return &ReferenceHandler{analytics: analytics, logger: logger}
}

// GetReference returns the reference row of :nmId.
func (h *ReferenceHandler) GetReference(c *gin.Context) {
	nmID, err := strconv.ParseInt(c.Param("nmId"), 10, 64)
	if err != nil || nmID <= 0 {
		respondError(c, h.logger, utils.NewValidationError("nmId must be a positive integer"))
		return
	}

	ref, found, err := h.analytics.Reference(c.Request.Context(), nmID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "SKU reference not found"})
		return
	}
	c.JSON(http.StatusOK, ref)
}

// GetSummary returns the lookup size and its categories.
func (h *ReferenceHandler) GetSummary(c *gin.Context) {
	summary, err := h.analytics.ReferenceSummary(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
