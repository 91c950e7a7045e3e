package services

import (
	"context"
	"time"

	"github.com/irfndi/skupulse/internal/models"
	"github.com/irfndi/skupulse/internal/reference"
)

const tracerName = "github.com/irfndi/skupulse/internal/services"

// FactStore supplies per-SKU snapshots for one day.
type FactStore interface {
	LoadSnapshots(ctx context.Context, date time.Time, historyDays int) ([]models.MetricSnapshot, error)
}

// OrderFeed supplies raw order records for an inclusive date range.
type OrderFeed interface {
	LoadOrders(ctx context.Context, from, to time.Time) ([]models.OrderRecord, error)
}

// ReferenceProvider hands out the frozen SKU reference lookup.
type ReferenceProvider interface {
	Lookup(ctx context.Context) (*reference.Lookup, error)
}

// ReportCache stores computed pass results. Misses return found=false.
type ReportCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Clear(ctx context.Context) (int, error)
}

// AnalyticsServiceInterface is what the HTTP layer and the digest depend on.
type AnalyticsServiceInterface interface {
	ClassifyDate(ctx context.Context, date time.Time) (*ClassificationResult, error)
	ClassifySnapshots(ctx context.Context, snapshots []models.MetricSnapshot) (*ClassificationResult, error)
	CompareHourly(ctx context.Context, from, to time.Time) (*models.ComparisonResult, error)
	CompareOrders(ctx context.Context, orders []models.OrderRecord) (*models.ComparisonResult, error)
	Reference(ctx context.Context, nmID int64) (models.SKUReference, bool, error)
	ReferenceSummary(ctx context.Context) (*ReferenceSummary, error)
	InvalidateReports(ctx context.Context) (int, error)
}
