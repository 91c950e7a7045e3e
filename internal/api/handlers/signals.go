package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/skupulse/internal/middleware"
	"github.com/irfndi/skupulse/internal/models"
	"github.com/irfndi/skupulse/internal/presentation"
	"github.com/irfndi/skupulse/internal/services"
	"github.com/irfndi/skupulse/internal/utils"
)

// SignalHandler serves the signal clusters and the SKU lists behind them.
type SignalHandler struct {
	analytics services.AnalyticsServiceInterface
	clock     Clock
	logger    *logrus.Logger
}

// ClusterSummary is one cluster with its display metadata and SKU count.
type ClusterSummary struct {
	presentation.ClusterStyle
	Count int `json:"count"`
}

// ClustersResponse lists every cluster in display order.
type ClustersResponse struct {
	PassID    string                   `json:"passId"`
	Date      string                   `json:"date"`
	Evaluated int                      `json:"evaluated"`
	Skipped   []services.SkippedRecord `json:"skipped"`
	Clusters  []ClusterSummary         `json:"clusters"`
}

// SKUsResponse lists the SKUs of the selected cluster.
type SKUsResponse struct {
	PassID  string                 `json:"passId"`
	Date    string                 `json:"date"`
	Cluster string                 `json:"cluster,omitempty"`
	Total   int                    `json:"total"`
	SKUs    []models.ClassifiedSKU `json:"skus"`
}

// ClassifyRequest carries a caller-supplied population.
type ClassifyRequest struct {
	Snapshots []models.MetricSnapshot `json:"snapshots" binding:"required"`
}

func NewSignalHandler(analytics services.AnalyticsServiceInterface, clock Clock, logger *logrus.Logger) *SignalHandler {
	return &SignalHandler{
		analytics: analytics,
		clock:     clock,
		logger:    logger,
	}
}

func (h *SignalHandler) classify(c *gin.Context) (*services.ClassificationResult, time.Time, bool) {
	date, err := parseDateParam(c, "date", h.clock.Today())
	if err != nil {
		respondError(c, h.logger, err)
		return nil, time.Time{}, false
	}

	result, err := h.analytics.ClassifyDate(c.Request.Context(), date)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, time.Time{}, false
	}
	middleware.AddSpanAttribute(c, "classification.pass_id", result.PassID)
	return result, date, true
}

// GetClusters returns the per-cluster SKU counts for a date.
func (h *SignalHandler) GetClusters(c *gin.Context) {
	result, date, ok := h.classify(c)
	if !ok {
		return
	}

	clusters := make([]ClusterSummary, 0, len(models.AllSignalTags))
	for _, style := range presentation.Styles() {
		clusters = append(clusters, ClusterSummary{
			ClusterStyle: style,
			Count:        result.Clusters[style.Tag],
		})
	}

	c.JSON(http.StatusOK, ClustersResponse{
		PassID:    result.PassID,
		Date:      date.Format(time.DateOnly),
		Evaluated: result.Evaluated,
		Skipped:   result.Skipped,
		Clusters:  clusters,
	})
}

// GetSKUs returns the SKUs to show for the selected cluster, most urgent
// first.
func (h *SignalHandler) GetSKUs(c *gin.Context) {
	var selected *models.SignalTag
	if raw := c.Query("cluster"); raw != "" {
		tag, err := models.ParseSignalTag(raw)
		if err != nil {
			respondError(c, h.logger, utils.NewValidationError(err.Error()))
			return
		}
		selected = &tag
	}

	showAll := false
	if raw := c.Query("show_all"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, h.logger, utils.NewValidationError("show_all must be a boolean"))
			return
		}
		showAll = v
	}

	result, date, ok := h.classify(c)
	if !ok {
		return
	}

	skus := services.FilterSKUs(result.SKUs, selected, services.FilterOptions{
		ShowAll:         showAll,
		BrandManager:    c.Query("brand_manager"),
		CategoryManager: c.Query("category_manager"),
	})

	response := SKUsResponse{
		PassID: result.PassID,
		Date:   date.Format(time.DateOnly),
		Total:  len(skus),
		SKUs:   skus,
	}
	if selected != nil {
		response.Cluster = string(*selected)
	}
	c.JSON(http.StatusOK, response)
}

// Classify runs a pass over the snapshots in the request body.
func (h *SignalHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, invalidBody(err))
		return
	}

	result, err := h.analytics.ClassifySnapshots(c.Request.Context(), req.Snapshots)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
