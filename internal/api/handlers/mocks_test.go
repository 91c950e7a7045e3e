package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/irfndi/skupulse/internal/models"
	"github.com/irfndi/skupulse/internal/services"
)

// MockAnalyticsService is a mock implementation of services.AnalyticsServiceInterface.
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) ClassifyDate(ctx context.Context, date time.Time) (*services.ClassificationResult, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ClassificationResult), args.Error(1)
}

func (m *MockAnalyticsService) ClassifySnapshots(ctx context.Context, snapshots []models.MetricSnapshot) (*services.ClassificationResult, error) {
	args := m.Called(ctx, snapshots)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ClassificationResult), args.Error(1)
}

func (m *MockAnalyticsService) CompareHourly(ctx context.Context, from, to time.Time) (*models.ComparisonResult, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComparisonResult), args.Error(1)
}

func (m *MockAnalyticsService) CompareOrders(ctx context.Context, orders []models.OrderRecord) (*models.ComparisonResult, error) {
	args := m.Called(ctx, orders)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComparisonResult), args.Error(1)
}

func (m *MockAnalyticsService) Reference(ctx context.Context, nmID int64) (models.SKUReference, bool, error) {
	args := m.Called(ctx, nmID)
	return args.Get(0).(models.SKUReference), args.Bool(1), args.Error(2)
}

func (m *MockAnalyticsService) ReferenceSummary(ctx context.Context) (*services.ReferenceSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ReferenceSummary), args.Error(1)
}

func (m *MockAnalyticsService) InvalidateReports(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockHealthChecker mocks a database or Redis health check.
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockDigestSender mocks the digest service.
type MockDigestSender struct {
	mock.Mock
}

func (m *MockDigestSender) Send(ctx context.Context, date time.Time) (*services.DigestReport, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DigestReport), args.Error(1)
}

var fixedToday = time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)

func testClock() Clock {
	return Clock{
		Location: time.UTC,
		Now:      func() time.Time { return fixedToday.Add(15 * time.Hour) },
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func init() {
	gin.SetMode(gin.TestMode)
}
