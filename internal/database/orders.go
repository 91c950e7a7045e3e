package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/skupulse/internal/models"
)

// OrderRepository reads raw order-feed payloads.
type OrderRepository struct {
	pool   DatabasePool
	logger *logrus.Logger
}

// NewOrderRepository creates an order repository.
func NewOrderRepository(pool DatabasePool, logger *logrus.Logger) *OrderRepository {
	return &OrderRepository{pool: pool, logger: logger}
}

const loadOrdersQuery = `
	SELECT id, payload
	FROM order_feed
	WHERE order_date BETWEEN $1::date AND $2::date
	ORDER BY id
`

// LoadOrders returns every order stored for the inclusive date range.
// Payloads that are not valid JSON are logged and left out.
func (r *OrderRepository) LoadOrders(ctx context.Context, from, to time.Time) ([]models.OrderRecord, error) {
	rows, err := r.pool.Query(ctx, loadOrdersQuery, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.OrderRecord
	for rows.Next() {
		var (
			id      int64
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		var order models.OrderRecord
		if err := json.Unmarshal(payload, &order); err != nil {
			r.logger.WithFields(logrus.Fields{
				"order_id": id,
				"error":    err.Error(),
			}).Warn("Skipping malformed order payload")
			continue
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
