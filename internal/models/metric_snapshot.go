package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricSnapshot holds the latest daily performance facts for one SKU.
// Pointer fields are optional: nil means the metric is unknown for this SKU,
// which is different from a known zero.
type MetricSnapshot struct {
	SKU  string    `json:"sku" db:"sku"`
	NmID int64     `json:"nmId" db:"nm_id"`
	Date time.Time `json:"date" db:"fact_date"`

	Clicks    int64 `json:"clicks" db:"clicks"`
	AddToCart int64 `json:"addToCart" db:"add_to_cart"`
	OrdersQty int64 `json:"ordersQty" db:"orders_qty"`

	PriceRub         decimal.Decimal `json:"priceRub" db:"price_rub"`
	RevenueWithVat   decimal.Decimal `json:"revenueWithVat" db:"revenue_with_vat"`
	CalculatedProfit decimal.Decimal `json:"calculatedProfit" db:"calculated_profit"`
	BuyerPrice       decimal.Decimal `json:"buyerPrice" db:"buyer_price"`

	CTR             *float64 `json:"ctr,omitempty" db:"ctr"`
	CRCart          *float64 `json:"crCart,omitempty" db:"cr_cart"`
	CROrder         *float64 `json:"crOrder,omitempty" db:"cr_order"`
	DRR             *float64 `json:"drr,omitempty" db:"drr"`
	ProfitMarginPct *float64 `json:"profitMarginPct,omitempty" db:"profit_margin_pct"`
	BuyoutPct       *float64 `json:"buyoutPct,omitempty" db:"buyout_pct"`

	CurrentStock   int64    `json:"currentStock" db:"current_stock"`
	StockCoverDays *float64 `json:"stockCoverDays,omitempty" db:"stock_cover_days"`

	// RecentOrders is the daily ordered-units history, oldest first,
	// ending with the snapshot day.
	RecentOrders []int64 `json:"recentOrders,omitempty"`
}

// Key returns a stable identifier used for ordering and logging.
func (s MetricSnapshot) Key() string {
	if s.SKU != "" {
		return s.SKU
	}
	return decimal.NewFromInt(s.NmID).String()
}

// Float returns a pointer to v, handy for building optional metrics.
func Float(v float64) *float64 {
	return &v
}
