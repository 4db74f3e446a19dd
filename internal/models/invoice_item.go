package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// InvoiceLineItem represents one priced line of an invoice
type InvoiceLineItem struct {
	ID               string          `json:"id" db:"id"`
	InvoiceID        string          `json:"invoiceId" db:"invoice_id"`
	LineNumber       int             `json:"lineNumber" db:"line_number"`
	VatRuleID        string          `json:"vatRuleId" db:"vat_rule_id"`
	EAN              string          `json:"ean" db:"ean"`
	ProductName      string          `json:"productName" db:"product_name"`
	Quantity         int             `json:"quantity" db:"quantity"`
	UnitPriceInclVat decimal.Decimal `json:"unitPriceInclVat" db:"unit_price_incl_vat"`
	UnitPriceExclVat decimal.Decimal `json:"unitPriceExclVat" db:"unit_price_excl_vat"`
	VatRate          decimal.Decimal `json:"vatRate" db:"vat_rate"`
	VatAmountPerUnit decimal.Decimal `json:"vatAmountPerUnit" db:"vat_amount_per_unit"`
	VatAmount        decimal.Decimal `json:"vatAmount" db:"vat_amount"`
	LineTotalExclVat decimal.Decimal `json:"lineTotalExclVat" db:"line_total_excl_vat"`
	LineTotalInclVat decimal.Decimal `json:"lineTotalInclVat" db:"line_total_incl_vat"`
	ReverseCharge    bool            `json:"reverseCharge" db:"reverse_charge"`
}

// Validate validates the line item and its amount invariants
func (li *InvoiceLineItem) Validate() error {
	if li.ID == "" {
		return fmt.Errorf("line item ID is required")
	}
	if li.InvoiceID == "" {
		return fmt.Errorf("invoice ID is required")
	}
	if li.VatRuleID == "" {
		return fmt.Errorf("VAT rule ID is required")
	}
	if strings.TrimSpace(li.ProductName) == "" {
		return fmt.Errorf("product name is required")
	}
	if li.Quantity <= 0 {
		return fmt.Errorf("quantity must be greater than 0")
	}
	if li.UnitPriceInclVat.IsNegative() {
		return fmt.Errorf("unit price cannot be negative")
	}

	expectedIncl := li.UnitPriceInclVat.Mul(decimal.NewFromInt(int64(li.Quantity))).Round(2)
	if !li.LineTotalInclVat.Equal(expectedIncl) {
		return fmt.Errorf("line total incl. VAT %s does not match %s x %d",
			li.LineTotalInclVat.StringFixed(2), li.UnitPriceInclVat.StringFixed(2), li.Quantity)
	}
	if !li.VatAmount.Equal(li.LineTotalInclVat.Sub(li.LineTotalExclVat).Round(2)) {
		return fmt.Errorf("VAT amount %s does not reconcile with line totals", li.VatAmount.StringFixed(2))
	}

	return nil
}
