package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// OrderRepository implements the OrderRepository interface for SQLite
type OrderRepository struct {
	*BaseRepository[models.Order]
}

// NewOrderRepository creates a new SQLite order repository
func NewOrderRepository(db *sql.DB, logger *logrus.Logger) repositories.OrderRepository {
	return &OrderRepository{
		BaseRepository: NewBaseRepository[models.Order](db, "marketplace_orders", logger),
	}
}

// GetByID retrieves an order owned by the tenant
func (r *OrderRepository) GetByID(ctx context.Context, orderID, tenantID string) (*models.Order, error) {
	if err := r.validateID(orderID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, marketplace_order_id, order_placed_at, currency, customer_json,
			   shipping_country_code, is_b2b, items_json, synced_at
		FROM marketplace_orders
		WHERE id = ? AND tenant_id = ?`

	order := &models.Order{}
	var customerJSON, itemsJSON string
	err := r.executeQueryRow(ctx, "get_by_id", query, orderID, tenantID).Scan(
		&order.ID,
		&order.TenantID,
		&order.MarketplaceOrderID,
		&order.OrderPlacedAt,
		&order.Currency,
		&customerJSON,
		&order.ShippingCountryCode,
		&order.IsB2B,
		&itemsJSON,
		&order.SyncedAt,
	)
	if err != nil {
		return nil, r.notFoundOr(err, "get_by_id", orderID)
	}

	if err := json.Unmarshal([]byte(customerJSON), &order.Customer); err != nil {
		return nil, repositories.NewRepositoryError("get_by_id", "order", orderID, fmt.Errorf("failed to decode customer: %w", err))
	}
	if err := json.Unmarshal([]byte(itemsJSON), &order.Items); err != nil {
		return nil, repositories.NewRepositoryError("get_by_id", "order", orderID, fmt.Errorf("failed to decode items: %w", err))
	}

	return order, nil
}

// Upsert inserts or replaces an order snapshot
func (r *OrderRepository) Upsert(ctx context.Context, order *models.Order) error {
	if err := order.Validate(); err != nil {
		return repositories.ValidationError("order", order.ID, err)
	}

	customerJSON, err := json.Marshal(order.Customer)
	if err != nil {
		return repositories.NewRepositoryError("upsert", "order", order.ID, err)
	}
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return repositories.NewRepositoryError("upsert", "order", order.ID, err)
	}

	query := `
		INSERT INTO marketplace_orders (
			id, tenant_id, marketplace_order_id, order_placed_at, currency, customer_json,
			shipping_country_code, is_b2b, items_json, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			marketplace_order_id = excluded.marketplace_order_id,
			order_placed_at = excluded.order_placed_at,
			currency = excluded.currency,
			customer_json = excluded.customer_json,
			shipping_country_code = excluded.shipping_country_code,
			is_b2b = excluded.is_b2b,
			items_json = excluded.items_json,
			synced_at = excluded.synced_at`

	_, err = r.executeExec(ctx, "upsert", query,
		order.ID,
		order.TenantID,
		order.MarketplaceOrderID,
		order.OrderPlacedAt.UTC(),
		order.Currency,
		string(customerJSON),
		order.ShippingCountryCode,
		order.IsB2B,
		string(itemsJSON),
		order.SyncedAt.UTC(),
	)
	return err
}
