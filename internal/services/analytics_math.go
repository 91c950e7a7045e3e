package services

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// calculateMedian returns the median of values, or false for an empty slice.
// The input is not modified.
func calculateMedian(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var (
	decimalHundred = decimal.NewFromInt(100)
	decimalHalf    = decimal.NewFromFloat(0.5)
)

// percentChange returns round(diff / base * 100) with ties rounded up
// (-2.5 becomes -2). A zero base yields 100 when current is positive and 0
// otherwise.
func percentChange(current, base decimal.Decimal) int64 {
	if !base.IsPositive() {
		if current.IsPositive() {
			return 100
		}
		return 0
	}
	ratio := current.Sub(base).Mul(decimalHundred).Div(base)
	return ratio.Add(decimalHalf).Floor().IntPart()
}
