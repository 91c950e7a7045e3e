package database

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/skupulse/internal/models"
)

// FactRepository reads per-SKU daily facts from the warehouse.
type FactRepository struct {
	pool DatabasePool
}

// NewFactRepository creates a fact repository.
func NewFactRepository(pool DatabasePool) *FactRepository {
	return &FactRepository{pool: pool}
}

const loadSnapshotsQuery = `
	SELECT m.sku, m.nm_id, m.fact_date,
		m.clicks, m.add_to_cart, m.orders_qty,
		m.price_rub, m.revenue_with_vat, m.calculated_profit, m.buyer_price,
		m.ctr, m.cr_cart, m.cr_order, m.drr, m.profit_margin_pct, m.buyout_pct,
		m.current_stock, m.stock_cover_days,
		COALESCE((
			SELECT array_agg(h.orders_qty ORDER BY h.fact_date)
			FROM sku_daily_metrics h
			WHERE h.nm_id = m.nm_id
				AND h.fact_date > $1::date - $2::int
				AND h.fact_date <= $1::date
		), '{}') AS recent_orders
	FROM sku_daily_metrics m
	WHERE m.fact_date = $1::date
	ORDER BY m.sku, m.nm_id
`

// LoadSnapshots returns the snapshots of date with historyDays of daily
// ordered units attached, oldest first.
func (r *FactRepository) LoadSnapshots(ctx context.Context, date time.Time, historyDays int) ([]models.MetricSnapshot, error) {
	if historyDays < 1 {
		historyDays = 1
	}

	rows, err := r.pool.Query(ctx, loadSnapshotsQuery, date.Format(time.DateOnly), historyDays)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.MetricSnapshot
	for rows.Next() {
		var s models.MetricSnapshot
		if err := rows.Scan(
			&s.SKU, &s.NmID, &s.Date,
			&s.Clicks, &s.AddToCart, &s.OrdersQty,
			&s.PriceRub, &s.RevenueWithVat, &s.CalculatedProfit, &s.BuyerPrice,
			&s.CTR, &s.CRCart, &s.CROrder, &s.DRR, &s.ProfitMarginPct, &s.BuyoutPct,
			&s.CurrentStock, &s.StockCoverDays,
			&s.RecentOrders,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}
