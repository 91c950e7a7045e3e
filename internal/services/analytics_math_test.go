package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateMedian(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
		ok       bool
	}{
		{name: "empty slice", values: []float64{}, ok: false},
		{name: "single value", values: []float64{5}, expected: 5, ok: true},
		{name: "odd count unsorted", values: []float64{9, 1, 5}, expected: 5, ok: true},
		{name: "even count", values: []float64{4, 1, 3, 2}, expected: 2.5, ok: true},
		{name: "duplicates", values: []float64{2, 2, 2, 10}, expected: 2, ok: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, ok := calculateMedian(tc.values)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestCalculateMedian_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_, _ = calculateMedian(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		base     int64
		expected int64
	}{
		{"both zero", 0, 0, 0},
		{"zero base positive current", 100, 0, 100},
		{"decline", 150, 200, -25},
		{"growth", 150, 100, 50},
		{"unchanged", 80, 80, 0},
		{"negative tie rounds up", 195, 200, -2},
		{"positive tie rounds up", 205, 200, 3},
		{"rounds to nearest", 1, 3, -67},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := percentChange(decimal.NewFromInt(tc.current), decimal.NewFromInt(tc.base))
			assert.Equal(t, tc.expected, got)
		})
	}
}
