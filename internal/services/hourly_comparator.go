package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/irfndi/skupulse/internal/config"
	"github.com/irfndi/skupulse/internal/logging"
	"github.com/irfndi/skupulse/internal/models"
	"github.com/irfndi/skupulse/internal/utils"
)

const hoursPerDay = 24

// HourlyComparator buckets order value by hour of day for the two most
// recent dates present in an order list.
type HourlyComparator struct {
	amountFields   []string
	location       *time.Location
	staleAfterDays int
	now            func() time.Time
	logger         *logrus.Logger
}

// NewHourlyComparator creates a comparator from validated settings.
func NewHourlyComparator(cfg config.HourlyConfig, logger *logrus.Logger) *HourlyComparator {
	fields := make([]string, len(cfg.AmountFields))
	copy(fields, cfg.AmountFields)

	return &HourlyComparator{
		amountFields:   fields,
		location:       cfg.Location(),
		staleAfterDays: cfg.StaleAfterDays,
		now:            time.Now,
		logger:         logger,
	}
}

// WithClock replaces the wall clock used for the staleness indicator.
func (hc *HourlyComparator) WithClock(now func() time.Time) *HourlyComparator {
	clone := *hc
	clone.now = now
	return &clone
}

// ResolveAmount returns the first present field of the configured priority
// list, or zero when none is present.
func (hc *HourlyComparator) ResolveAmount(order models.OrderRecord) decimal.Decimal {
	for _, field := range hc.amountFields {
		if amount, ok := order.Amounts[field]; ok {
			return amount
		}
	}
	return decimal.Zero
}

// parseOrderTimestamp reads the calendar date and hour exactly as written in
// the timestamp, e.g. "2026-01-06T10:15:00" or "2026-01-06 10:15". hour is -1
// when the timestamp carries no parseable hour.
func parseOrderTimestamp(ts string) (date string, hour int, ok bool) {
	if len(ts) < 10 {
		return "", -1, false
	}
	date = ts[:10]
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return "", -1, false
	}

	if len(ts) < 13 || (ts[10] != 'T' && ts[10] != ' ') {
		return date, -1, true
	}
	h0, h1 := ts[11], ts[12]
	if h0 < '0' || h0 > '9' || h1 < '0' || h1 > '9' {
		return date, -1, true
	}
	hour = int(h0-'0')*10 + int(h1-'0')
	if hour >= hoursPerDay {
		return date, -1, true
	}
	return date, hour, true
}

// Compare runs one comparison pass. It fails with an InsufficientDataError
// when fewer than two distinct dates are present; no partial result is
// returned in that case.
func (hc *HourlyComparator) Compare(ctx context.Context, orders []models.OrderRecord) (*models.ComparisonResult, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "HourlyComparator.Compare")
	defer span.End()

	started := time.Now()
	log := logging.WithComponent(hc.logger, "hourly_comparator")

	type parsed struct {
		date  string
		hour  int
		order models.OrderRecord
	}

	records := make([]parsed, 0, len(orders))
	dateSet := make(map[string]struct{})
	skipped := 0

	for _, o := range orders {
		date, hour, ok := parseOrderTimestamp(o.Timestamp)
		if !ok {
			skipped++
			log.WithField("timestamp", o.Timestamp).Debug("Skipping order without a parseable date")
			continue
		}
		dateSet[date] = struct{}{}
		records = append(records, parsed{date: date, hour: hour, order: o})
	}

	if len(dateSet) < 2 {
		available := "no"
		if len(dateSet) == 1 {
			available = "only one"
		}
		return nil, utils.NewInsufficientDataErrorf("%s distinct date available in %d order records, need two", available, len(orders))
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	latestDate, previousDate := dates[0], dates[1]

	var latest, previous [hoursPerDay]decimal.Decimal
	for h := 0; h < hoursPerDay; h++ {
		latest[h] = decimal.Zero
		previous[h] = decimal.Zero
	}
	latestOrders, previousOrders := 0, 0

	for _, r := range records {
		if r.hour < 0 {
			skipped++
			log.WithField("timestamp", r.order.Timestamp).Debug("Skipping order without a parseable hour")
			continue
		}
		if r.date != latestDate && r.date != previousDate {
			continue
		}
		amount := hc.ResolveAmount(r.order)
		if amount.IsNegative() {
			skipped++
			log.WithFields(logrus.Fields{
				"timestamp": r.order.Timestamp,
				"amount":    amount.String(),
			}).Warn("Skipping order with negative amount")
			continue
		}
		if r.date == latestDate {
			latest[r.hour] = latest[r.hour].Add(amount)
			latestOrders++
		} else {
			previous[r.hour] = previous[r.hour].Add(amount)
			previousOrders++
		}
	}

	hours := make([]models.HourlyStat, hoursPerDay)
	totalToday, totalYesterday := decimal.Zero, decimal.Zero
	lastActiveHour := -1
	for h := 0; h < hoursPerDay; h++ {
		today := latest[h].Round(0)
		yesterday := previous[h].Round(0)
		hours[h] = models.HourlyStat{
			Hour:        h,
			Today:       today,
			Yesterday:   yesterday,
			Diff:        today.Sub(yesterday),
			DiffPercent: percentChange(today, yesterday),
		}
		totalToday = totalToday.Add(today)
		totalYesterday = totalYesterday.Add(yesterday)
		if !latest[h].IsZero() {
			lastActiveHour = h
		}
	}

	result := &models.ComparisonResult{
		LatestDate:     latestDate,
		PreviousDate:   previousDate,
		Hours:          hours,
		Totals:         buildTotals(totalToday, totalYesterday),
		LatestOrders:   latestOrders,
		PreviousOrders: previousOrders,
		SkippedRecords: skipped,
		LastActiveHour: lastActiveHour,
		SameTime:       sameTimeTotals(hours, lastActiveHour),
		Staleness:      hc.staleness(latestDate),
	}

	span.SetAttributes(
		attribute.String("latest_date", latestDate),
		attribute.String("previous_date", previousDate),
		attribute.Int("orders.skipped", skipped),
	)
	logging.LogPassSummary(log.WithFields(logrus.Fields{
		"latest_date":   latestDate,
		"previous_date": previousDate,
	}), "hourly_comparison", latestOrders+previousOrders, skipped, time.Since(started).Milliseconds())

	return result, nil
}

func buildTotals(today, yesterday decimal.Decimal) models.ComparisonTotals {
	return models.ComparisonTotals{
		Today:       today,
		Yesterday:   yesterday,
		Diff:        today.Sub(yesterday),
		DiffPercent: percentChange(today, yesterday),
	}
}

// sameTimeTotals sums both dates through throughHour inclusive.
func sameTimeTotals(hours []models.HourlyStat, throughHour int) models.ComparisonTotals {
	today, yesterday := decimal.Zero, decimal.Zero
	for _, h := range hours {
		if h.Hour > throughHour {
			break
		}
		today = today.Add(h.Today)
		yesterday = yesterday.Add(h.Yesterday)
	}
	return buildTotals(today, yesterday)
}

// staleness is informational only and never feeds the comparison math.
func (hc *HourlyComparator) staleness(latestDate string) models.Staleness {
	now := hc.now().In(hc.location)
	latest, err := time.ParseInLocation(time.DateOnly, latestDate, hc.location)
	if err != nil {
		return models.Staleness{CheckedAt: now}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, hc.location)
	days := int(today.Sub(latest).Hours() / 24)
	// DST shifts leave a 23 or 25 hour day; round to whole days.
	if rem := today.Sub(latest) - time.Duration(days)*24*time.Hour; rem >= 12*time.Hour {
		days++
	}

	return models.Staleness{
		CheckedAt:       now,
		DaysSinceLatest: days,
		Stale:           days > hc.staleAfterDays,
	}
}
