package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/skupulse/internal/models"
)

// AnalyticsService wires the pure classifier and comparator to the fact
// store, order feed, reference lookup and report cache.
type AnalyticsService struct {
	facts       FactStore
	orders      OrderFeed
	references  ReferenceProvider
	cache       ReportCache
	classifier  *SignalClassifier
	comparator  *HourlyComparator
	historyDays int
	retry       RetryPolicy
	logger      *logrus.Logger
}

// AnalyticsServiceConfig groups the collaborators of AnalyticsService.
// Cache may be nil.
type AnalyticsServiceConfig struct {
	Facts      FactStore
	Orders     OrderFeed
	References ReferenceProvider
	Cache      ReportCache
	Classifier *SignalClassifier
	Comparator *HourlyComparator
	// HistoryDays is how many days of order history to attach to each
	// snapshot for trend rules.
	HistoryDays int
	// Retry applies to fact store and order feed reads.
	Retry  RetryPolicy
	Logger *logrus.Logger
}

// NewAnalyticsService creates the service.
func NewAnalyticsService(cfg AnalyticsServiceConfig) *AnalyticsService {
	return &AnalyticsService{
		facts:       cfg.Facts,
		orders:      cfg.Orders,
		references:  cfg.References,
		cache:       cfg.Cache,
		classifier:  cfg.Classifier,
		comparator:  cfg.Comparator,
		historyDays: cfg.HistoryDays,
		retry:       cfg.Retry,
		logger:      cfg.Logger,
	}
}

func classificationCacheKey(date time.Time) string {
	return "classification:" + date.Format(time.DateOnly)
}

func comparisonCacheKey(from, to time.Time) string {
	return fmt.Sprintf("hourly:%s:%s", from.Format(time.DateOnly), to.Format(time.DateOnly))
}

// ClassifyDate classifies the snapshots stored for date.
func (s *AnalyticsService) ClassifyDate(ctx context.Context, date time.Time) (*ClassificationResult, error) {
	key := classificationCacheKey(date)
	var cached ClassificationResult
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	snapshots, err := executeWithRetry(ctx, s.retry, s.logger, "load_snapshots", func(ctx context.Context) ([]models.MetricSnapshot, error) {
		return s.facts.LoadSnapshots(ctx, date, s.historyDays)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots for %s: %w", date.Format(time.DateOnly), err)
	}

	result, err := s.ClassifySnapshots(ctx, snapshots)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, result)
	return result, nil
}

// ClassifySnapshots classifies a caller-supplied population.
func (s *AnalyticsService) ClassifySnapshots(ctx context.Context, snapshots []models.MetricSnapshot) (*ClassificationResult, error) {
	lookup, err := s.references.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	return s.classifier.ClassifyPopulation(ctx, snapshots, lookup)
}

// CompareHourly compares the two latest dates found in the order feed
// between from and to.
func (s *AnalyticsService) CompareHourly(ctx context.Context, from, to time.Time) (*models.ComparisonResult, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s is before %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	key := comparisonCacheKey(from, to)
	var cached models.ComparisonResult
	if s.cacheGet(ctx, key, &cached) {
		// Staleness depends on the wall clock, not on the cached data.
		cached.Staleness = s.comparator.staleness(cached.LatestDate)
		return &cached, nil
	}

	orders, err := executeWithRetry(ctx, s.retry, s.logger, "load_orders", func(ctx context.Context) ([]models.OrderRecord, error) {
		return s.orders.LoadOrders(ctx, from, to)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	result, err := s.comparator.Compare(ctx, orders)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, result)
	return result, nil
}

// CompareOrders compares a caller-supplied order list.
func (s *AnalyticsService) CompareOrders(ctx context.Context, orders []models.OrderRecord) (*models.ComparisonResult, error) {
	return s.comparator.Compare(ctx, orders)
}

// Reference returns the reference data for nmID.
func (s *AnalyticsService) Reference(ctx context.Context, nmID int64) (models.SKUReference, bool, error) {
	lookup, err := s.references.Lookup(ctx)
	if err != nil {
		return models.SKUReference{}, false, err
	}
	ref, ok := lookup.Get(nmID)
	return ref, ok, nil
}

// ReferenceSummary describes the loaded reference lookup.
type ReferenceSummary struct {
	SKUs       int      `json:"skus"`
	Duplicates int      `json:"duplicates"`
	Categories []string `json:"categories"`
}

// ReferenceSummary reports the size and categories of the reference lookup.
func (s *AnalyticsService) ReferenceSummary(ctx context.Context) (*ReferenceSummary, error) {
	lookup, err := s.references.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	categories := lookup.Categories()
	if categories == nil {
		categories = []string{}
	}
	return &ReferenceSummary{
		SKUs:       lookup.Len(),
		Duplicates: lookup.Duplicates(),
		Categories: categories,
	}, nil
}

// InvalidateReports drops every cached pass result, so the next request
// recomputes from source. It returns how many reports were removed.
func (s *AnalyticsService) InvalidateReports(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	cleared, err := s.cache.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear report cache: %w", err)
	}
	s.logger.WithField("cleared", cleared).Info("Report cache invalidated")
	return cleared, nil
}

// Cache failures never fail a request; they are logged and the pass is
// computed from source.
func (s *AnalyticsService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Report cache read failed")
		return false
	}
	return found
}

func (s *AnalyticsService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Report cache write failed")
	}
}
