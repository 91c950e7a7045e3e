package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HourlyStat compares one hour-of-day bucket between the two latest dates.
type HourlyStat struct {
	Hour        int             `json:"hour"`
	Today       decimal.Decimal `json:"today"`
	Yesterday   decimal.Decimal `json:"yesterday"`
	Diff        decimal.Decimal `json:"diff"`
	DiffPercent int64           `json:"diffPercent"`
}

// ComparisonTotals sums the hourly buckets of both dates.
type ComparisonTotals struct {
	Today       decimal.Decimal `json:"today"`
	Yesterday   decimal.Decimal `json:"yesterday"`
	Diff        decimal.Decimal `json:"diff"`
	DiffPercent int64           `json:"diffPercent"`
}

// Staleness tells how old the latest date in the data is relative to the wall clock.
type Staleness struct {
	CheckedAt       time.Time `json:"checkedAt"`
	DaysSinceLatest int       `json:"daysSinceLatest"`
	Stale           bool      `json:"stale"`
}

// ComparisonResult is the immutable output of one hourly comparison pass.
type ComparisonResult struct {
	LatestDate     string           `json:"latestDate"`
	PreviousDate   string           `json:"previousDate"`
	Hours          []HourlyStat     `json:"hours"`
	Totals         ComparisonTotals `json:"totals"`
	LatestOrders   int              `json:"latestOrders"`
	PreviousOrders int              `json:"previousOrders"`
	SkippedRecords int              `json:"skippedRecords"`

	// LastActiveHour is the last hour with orders on LatestDate, -1 if none.
	LastActiveHour int `json:"lastActiveHour"`
	// SameTime compares both dates only through LastActiveHour.
	SameTime ComparisonTotals `json:"sameTime"`

	Staleness Staleness `json:"staleness"`
}
