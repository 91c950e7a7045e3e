package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/skupulse/internal/models"
	"github.com/irfndi/skupulse/internal/utils"
)

type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tgmodels.Message), args.Error(1)
}

type MockDigestSource struct {
	mock.Mock
}

func (m *MockDigestSource) ClassifyDate(ctx context.Context, date time.Time) (*ClassificationResult, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ClassificationResult), args.Error(1)
}

func (m *MockDigestSource) CompareHourly(ctx context.Context, from, to time.Time) (*models.ComparisonResult, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComparisonResult), args.Error(1)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func digestClassification() *ClassificationResult {
	skus := []models.ClassifiedSKU{
		{Snapshot: models.MetricSnapshot{SKU: "dress_red", NmID: 11}, Tags: models.NewTagSet(models.SignalOOSNow)},
		{Snapshot: models.MetricSnapshot{SKU: "coat", NmID: 12, CurrentStock: 4}, Tags: models.NewTagSet(models.SignalOOSSoon, models.SignalHighDRR)},
		{Snapshot: models.MetricSnapshot{SKU: "scarf", NmID: 13, CurrentStock: 900}, Tags: models.NewTagSet()},
	}
	return &ClassificationResult{
		SKUs:      skus,
		Clusters:  AggregateClusters(skus),
		Evaluated: len(skus),
	}
}

func digestComparison() *models.ComparisonResult {
	return &models.ComparisonResult{
		LatestDate:     "2026-01-06",
		PreviousDate:   "2026-01-05",
		Totals:         buildTotals(decimal.NewFromInt(150), decimal.NewFromInt(200)),
		LastActiveHour: 10,
		SameTime:       buildTotals(decimal.NewFromInt(150), decimal.NewFromInt(120)),
		Staleness:      models.Staleness{DaysSinceLatest: 3, Stale: true},
	}
}

func TestFormatDigest(t *testing.T) {
	date := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	text := FormatDigest(date, digestClassification(), digestComparison(), 5)

	assert.Contains(t, text, "*SKU digest 2026-01-06*")
	assert.Contains(t, text, "Evaluated 3 SKUs")
	assert.Contains(t, text, "Out of stock: *1*")
	assert.Contains(t, text, "Running out: *1*")
	assert.NotContains(t, text, "Overstock")
	assert.Contains(t, text, `dress\_red (11)`)
	assert.Contains(t, text, "Orders 2026-01-06 vs 2026-01-05")
	assert.Contains(t, text, "(-25%)")
	assert.Contains(t, text, "Through 10:00")
	assert.Contains(t, text, "(+25%)")
	assert.Contains(t, text, "3 days old")
}

func TestFormatDigest_NoSignalsNoComparison(t *testing.T) {
	result := &ClassificationResult{Clusters: AggregateClusters(nil), Evaluated: 2}
	text := FormatDigest(time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), result, nil, 5)

	assert.Contains(t, text, "No signals today")
	assert.NotContains(t, text, "Orders")
}

func TestFormatDigest_TruncatesUrgentList(t *testing.T) {
	var skus []models.ClassifiedSKU
	for i, name := range []string{"a", "b", "c"} {
		skus = append(skus, models.ClassifiedSKU{
			Snapshot: models.MetricSnapshot{SKU: name, NmID: int64(i + 1)},
			Tags:     models.NewTagSet(models.SignalOOSNow),
		})
	}
	result := &ClassificationResult{SKUs: skus, Clusters: AggregateClusters(skus), Evaluated: 3}

	text := FormatDigest(time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), result, nil, 2)
	assert.Contains(t, text, "• a (1)")
	assert.Contains(t, text, "• b (2)")
	assert.NotContains(t, text, "• c (3)")
	assert.Contains(t, text, "and 1 more")
}

func TestDigestService_Send(t *testing.T) {
	date := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	source := new(MockDigestSource)
	sender := new(MockMessageSender)

	source.On("ClassifyDate", mock.Anything, date).Return(digestClassification(), nil)
	source.On("CompareHourly", mock.Anything, date.AddDate(0, 0, -2), date).Return(digestComparison(), nil)
	sender.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
		return p.ChatID == int64(100) && p.ParseMode == tgmodels.ParseModeMarkdown
	})).Return(&tgmodels.Message{ID: 1}, nil)
	sender.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
		return p.ChatID == int64(200)
	})).Return(nil, errors.New("chat not found"))

	svc := NewDigestService(source, sender, DigestConfig{ChatIDs: []int64{100, 200}, LookbackDays: 3}, quietLogger())
	report, err := svc.Send(context.Background(), date)

	require.NoError(t, err)
	assert.Equal(t, "2026-01-06", report.Date)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 1, report.Failed)
	source.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestDigestService_SendWithoutHourlyData(t *testing.T) {
	date := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	source := new(MockDigestSource)
	sender := new(MockMessageSender)

	source.On("ClassifyDate", mock.Anything, date).Return(digestClassification(), nil)
	source.On("CompareHourly", mock.Anything, mock.Anything, date).
		Return(nil, utils.NewInsufficientDataErrorf("only one distinct date"))
	sender.On("SendMessage", mock.Anything, mock.Anything).Return(&tgmodels.Message{ID: 1}, nil)

	svc := NewDigestService(source, sender, DigestConfig{ChatIDs: []int64{100}}, quietLogger())
	report, err := svc.Send(context.Background(), date)

	require.NoError(t, err)
	assert.NotContains(t, report.Text, "Orders")
}

func TestDigestService_SendErrors(t *testing.T) {
	date := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)

	t.Run("no bot", func(t *testing.T) {
		svc := NewDigestService(new(MockDigestSource), nil, DigestConfig{ChatIDs: []int64{1}}, quietLogger())
		_, err := svc.Send(context.Background(), date)
		assert.Error(t, err)
	})

	t.Run("no chats", func(t *testing.T) {
		svc := NewDigestService(new(MockDigestSource), new(MockMessageSender), DigestConfig{}, quietLogger())
		_, err := svc.Send(context.Background(), date)
		var validation *utils.ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("classification failure", func(t *testing.T) {
		source := new(MockDigestSource)
		source.On("ClassifyDate", mock.Anything, date).Return(nil, errors.New("db down"))
		svc := NewDigestService(source, new(MockMessageSender), DigestConfig{ChatIDs: []int64{1}}, quietLogger())
		_, err := svc.Send(context.Background(), date)
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("every chat fails", func(t *testing.T) {
		source := new(MockDigestSource)
		sender := new(MockMessageSender)
		source.On("ClassifyDate", mock.Anything, date).Return(digestClassification(), nil)
		source.On("CompareHourly", mock.Anything, mock.Anything, date).Return(digestComparison(), nil)
		sender.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("forbidden"))

		svc := NewDigestService(source, sender, DigestConfig{ChatIDs: []int64{1}}, quietLogger())
		report, err := svc.Send(context.Background(), date)
		assert.Error(t, err)
		require.NotNil(t, report)
		assert.Equal(t, 1, report.Failed)
	})
}

func TestDigestService_StartStopWithoutInterval(t *testing.T) {
	svc := NewDigestService(new(MockDigestSource), nil, DigestConfig{}, quietLogger())
	svc.Start()
	svc.Stop()

	select {
	case <-svc.ctx.Done():
	default:
		t.Fatal("context should be cancelled after Stop")
	}
}

func TestDigestService_SendStopsCallingTelegramWhenCircuitOpens(t *testing.T) {
	date := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	source := new(MockDigestSource)
	sender := new(MockMessageSender)

	source.On("ClassifyDate", mock.Anything, date).Return(digestClassification(), nil)
	source.On("CompareHourly", mock.Anything, mock.Anything, date).Return(digestComparison(), nil)
	sender.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("bad gateway"))

	svc := NewDigestService(source, sender, DigestConfig{
		ChatIDs:  []int64{1, 2, 3, 4},
		Delivery: CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Hour},
	}, quietLogger())
	report, err := svc.Send(context.Background(), date)

	assert.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 4, report.Failed)
	sender.AssertNumberOfCalls(t, "SendMessage", 2)

	stats := svc.DeliveryStats()
	assert.Equal(t, "open", stats.State)
	assert.Equal(t, int64(2), stats.RejectedRequests)
}
