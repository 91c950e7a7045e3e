package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/skupulse/internal/models"
	"github.com/irfndi/skupulse/internal/services"
	"github.com/irfndi/skupulse/internal/utils"
)

func sampleClassification() *services.ClassificationResult {
	skus := []models.ClassifiedSKU{
		{
			Snapshot:  models.MetricSnapshot{SKU: "coat", NmID: 2, CurrentStock: 3},
			Reference: models.SKUReference{NmID: 2, BrandManager: "Anna"},
			Tags:      models.NewTagSet(models.SignalOOSSoon),
		},
		{
			Snapshot:  models.MetricSnapshot{SKU: "dress", NmID: 1},
			Reference: models.SKUReference{NmID: 1, BrandManager: "Boris"},
			Tags:      models.NewTagSet(models.SignalOOSNow, models.SignalLowCTR),
		},
		{
			Snapshot:  models.MetricSnapshot{SKU: "scarf", NmID: 3, CurrentStock: 50},
			Reference: models.SKUReference{NmID: 3, BrandManager: "Anna"},
			Tags:      models.NewTagSet(),
		},
	}
	return &services.ClassificationResult{
		PassID:    "pass-1",
		SKUs:      skus,
		Clusters:  services.AggregateClusters(skus),
		Evaluated: len(skus),
	}
}

func signalRouter(analytics *MockAnalyticsService) *gin.Engine {
	h := NewSignalHandler(analytics, testClock(), testLogger())
	router := gin.New()
	router.GET("/clusters", h.GetClusters)
	router.GET("/skus", h.GetSKUs)
	router.POST("/classify", h.Classify)
	return router
}

func TestSignalHandler_GetClusters(t *testing.T) {
	analytics := new(MockAnalyticsService)
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	analytics.On("ClassifyDate", mock.Anything, date).Return(sampleClassification(), nil)

	w := httptest.NewRecorder()
	signalRouter(analytics).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/clusters?date=2026-01-05", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ClustersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "pass-1", resp.PassID)
	assert.Equal(t, "2026-01-05", resp.Date)
	require.Len(t, resp.Clusters, len(models.AllSignalTags))
	assert.Equal(t, models.SignalOOSNow, resp.Clusters[0].Tag)
	assert.Equal(t, 1, resp.Clusters[0].Count)
	assert.Equal(t, models.SignalAboveMarket, resp.Clusters[8].Tag)
	assert.Equal(t, 0, resp.Clusters[8].Count)
	analytics.AssertExpectations(t)
}

func TestSignalHandler_GetClusters_DefaultsToToday(t *testing.T) {
	analytics := new(MockAnalyticsService)
	analytics.On("ClassifyDate", mock.Anything, fixedToday).Return(sampleClassification(), nil)

	w := httptest.NewRecorder()
	signalRouter(analytics).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/clusters", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	analytics.AssertExpectations(t)
}

func TestSignalHandler_GetClusters_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
	}{
		{"bad date", "?date=06.01.2026", nil, http.StatusBadRequest},
		{"insufficient data", "", utils.NewInsufficientDataErrorf("no SKU snapshots supplied"), http.StatusUnprocessableEntity},
		{"store failure", "", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analytics := new(MockAnalyticsService)
			if tt.err != nil {
				analytics.On("ClassifyDate", mock.Anything, fixedToday).Return(nil, tt.err)
			}

			w := httptest.NewRecorder()
			signalRouter(analytics).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/clusters"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestSignalHandler_GetSKUs(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantSKUs  []string
		wantClust string
	}{
		{"tagged only by default", "", []string{"dress", "coat"}, ""},
		{"show all", "?show_all=true", []string{"dress", "coat", "scarf"}, ""},
		{"selected cluster", "?cluster=low_ctr", []string{"dress"}, "LOW_CTR"},
		{"brand manager", "?show_all=true&brand_manager=Anna", []string{"coat", "scarf"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analytics := new(MockAnalyticsService)
			analytics.On("ClassifyDate", mock.Anything, fixedToday).Return(sampleClassification(), nil)

			w := httptest.NewRecorder()
			signalRouter(analytics).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/skus"+tt.query, nil))

			require.Equal(t, http.StatusOK, w.Code)
			var resp SKUsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

			var got []string
			for _, sku := range resp.SKUs {
				got = append(got, sku.Snapshot.SKU)
			}
			assert.Equal(t, tt.wantSKUs, got)
			assert.Equal(t, len(tt.wantSKUs), resp.Total)
			assert.Equal(t, tt.wantClust, resp.Cluster)
		})
	}
}

func TestSignalHandler_GetSKUs_BadParams(t *testing.T) {
	for _, query := range []string{"?cluster=NOPE", "?show_all=maybe"} {
		w := httptest.NewRecorder()
		signalRouter(new(MockAnalyticsService)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/skus"+query, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestSignalHandler_Classify(t *testing.T) {
	analytics := new(MockAnalyticsService)
	analytics.On("ClassifySnapshots", mock.Anything, mock.MatchedBy(func(s []models.MetricSnapshot) bool {
		return len(s) == 1 && s[0].SKU == "dress" && s[0].DRR != nil && *s[0].DRR == 35
	})).Return(sampleClassification(), nil)

	body := []byte(`{"snapshots":[{"sku":"dress","nmId":1,"currentStock":4,"drr":35}]}`)
	w := httptest.NewRecorder()
	signalRouter(analytics).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/classify", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"passId":"pass-1"`)
	analytics.AssertExpectations(t)
}

func TestSignalHandler_Classify_BadBody(t *testing.T) {
	w := httptest.NewRecorder()
	signalRouter(new(MockAnalyticsService)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/classify", bytes.NewReader([]byte(`{`))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
