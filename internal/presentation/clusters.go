// Package presentation owns display metadata for signal clusters. Rule
// evaluation never reads it.
package presentation

import (
	"sort"

	"github.com/irfndi/skupulse/internal/models"
)

// ClusterStyle is how a cluster is shown to managers.
type ClusterStyle struct {
	Tag         models.SignalTag `json:"tag"`
	Priority    int              `json:"priority"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Color       string           `json:"color"`
	Emoji       string           `json:"emoji"`
}

var clusterStyles = map[models.SignalTag]ClusterStyle{
	models.SignalOOSNow: {
		Title: "Out of stock", Description: "No units left, sales are stopped",
		Color: "#dc2626", Emoji: "🔴",
	},
	models.SignalOOSSoon: {
		Title: "Running out", Description: "Stock covers less than a week of sales",
		Color: "#ea580c", Emoji: "🟠",
	},
	models.SignalHighDRR: {
		Title: "Expensive ads", Description: "Advertising spend is too high relative to revenue",
		Color: "#d97706", Emoji: "💸",
	},
	models.SignalLowCR: {
		Title: "Poor conversion", Description: "Few visits turn into orders",
		Color: "#ca8a04", Emoji: "📉",
	},
	models.SignalLowCTR: {
		Title: "Low CTR", Description: "Listing gets far fewer clicks than category peers",
		Color: "#65a30d", Emoji: "👀",
	},
	models.SignalLowBuyout: {
		Title: "Low buyout", Description: "Buyers return a large share of ordered units",
		Color: "#0891b2", Emoji: "↩️",
	},
	models.SignalFallingSales: {
		Title: "Falling sales", Description: "Orders dropped over the last days",
		Color: "#7c3aed", Emoji: "⬇️",
	},
	models.SignalOverstock: {
		Title: "Overstock", Description: "Stock covers more than a quarter of sales",
		Color: "#2563eb", Emoji: "📦",
	},
	models.SignalAboveMarket: {
		Title: "Top performer", Description: "Revenue or margin well above category peers",
		Color: "#16a34a", Emoji: "🏆",
	},
}

// Style returns the display metadata for tag.
func Style(tag models.SignalTag) ClusterStyle {
	style := clusterStyles[tag]
	style.Tag = tag
	style.Priority = tag.Priority()
	if style.Title == "" {
		style.Title = string(tag)
	}
	return style
}

// Styles lists every cluster ordered by display priority.
func Styles() []ClusterStyle {
	out := make([]ClusterStyle, 0, len(models.AllSignalTags))
	for _, tag := range models.AllSignalTags {
		out = append(out, Style(tag))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}
