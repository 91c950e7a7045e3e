package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/skupulse/internal/services"
)

// CacheHandler administers the report cache.
type CacheHandler struct {
	analytics services.AnalyticsServiceInterface
	logger    *logrus.Logger
}

func NewCacheHandler(analytics services.AnalyticsServiceInterface, logger *logrus.Logger) *CacheHandler {
	return &CacheHandler{analytics: analytics, logger: logger}
}

// InvalidateReports drops cached classification and comparison results.
func (h *CacheHandler) InvalidateReports(c *gin.Context) {
	cleared, err := h.analytics.InvalidateReports(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}
