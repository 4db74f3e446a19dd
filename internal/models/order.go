package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the synced marketplace order an invoice is generated from
type Order struct {
	ID                  string          `json:"id" db:"id"`
	TenantID            string          `json:"tenantId" db:"tenant_id"`
	MarketplaceOrderID  *string         `json:"marketplaceOrderId,omitempty" db:"marketplace_order_id"`
	OrderPlacedAt       time.Time       `json:"orderPlacedAt" db:"order_placed_at"`
	Currency            string          `json:"currency" db:"currency"`
	Customer            CustomerDetails `json:"customer" db:"customer_json"`
	ShippingCountryCode string          `json:"shippingCountryCode" db:"shipping_country_code"`
	IsB2B               bool            `json:"isB2B" db:"is_b2b"`
	Items               []OrderItem     `json:"items" db:"items_json"`
	SyncedAt            time.Time       `json:"syncedAt" db:"synced_at"`
}

// OrderItem is a single product line of a marketplace order.
// UnitPriceInclVat is the VAT-inclusive price the marketplace reports.
type OrderItem struct {
	OrderItemID        string          `json:"orderItemId"`
	EAN                string          `json:"ean"`
	ProductName        string          `json:"productName"`
	Quantity           int             `json:"quantity"`
	UnitPriceInclVat   decimal.Decimal `json:"unitPriceInclVat"`
	DestinationCountry string          `json:"destinationCountry,omitempty"`
}

// DestinationCountry returns the country the item ships to, falling back to the order level
func (o *Order) DestinationCountry(item OrderItem) string {
	if item.DestinationCountry != "" {
		return strings.ToUpper(item.DestinationCountry)
	}
	if o.ShippingCountryCode != "" {
		return strings.ToUpper(o.ShippingCountryCode)
	}
	return strings.ToUpper(o.Customer.CountryCode)
}

// GetMarketplaceOrderID returns the marketplace order ID or empty string if nil
func (o *Order) GetMarketplaceOrderID() string {
	if o.MarketplaceOrderID == nil {
		return ""
	}
	return *o.MarketplaceOrderID
}

// Validate validates the order snapshot
func (o *Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("order ID is required")
	}
	if strings.TrimSpace(o.TenantID) == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("order must contain at least one item")
	}
	return nil
}
