package services

import (
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// LineAmounts holds the computed amounts of one invoice line
type LineAmounts struct {
	UnitPriceInclVat decimal.Decimal `json:"unitPriceInclVat"`
	UnitPriceExclVat decimal.Decimal `json:"unitPriceExclVat"`
	VatAmountPerUnit decimal.Decimal `json:"vatAmountPerUnit"`
	Quantity         int             `json:"quantity"`
	VatRatePercent   decimal.Decimal `json:"vatRatePercent"`
	LineTotalExclVat decimal.Decimal `json:"lineTotalExclVat"`
	LineTotalInclVat decimal.Decimal `json:"lineTotalInclVat"`
	LineVatAmount    decimal.Decimal `json:"lineVatAmount"`
}

// OrderTotals holds the aggregated amounts of an invoice
type OrderTotals struct {
	SubtotalExclVat decimal.Decimal `json:"subtotalExclVat"`
	VatTotal        decimal.Decimal `json:"vatTotal"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
}

// CalculateLine derives exclusive amounts and VAT from a VAT-inclusive unit price.
//
// The exclusive unit price is kept at full precision and multiplied by quantity before the single
// rounding step at line level, so multi-unit lines never accumulate per-unit rounding drift.
// Line VAT is the difference of the two rounded line totals, which keeps
// lineTotalExclVat + lineVatAmount == lineTotalInclVat exact.
func CalculateLine(unitPriceInclVat decimal.Decimal, quantity int, vatRatePercent decimal.Decimal) (LineAmounts, error) {
	if quantity <= 0 {
		return LineAmounts{}, &InvalidLineItemError{Reason: "quantity must be greater than 0"}
	}
	if unitPriceInclVat.IsNegative() {
		return LineAmounts{}, &InvalidLineItemError{Reason: "unit price cannot be negative"}
	}
	if vatRatePercent.IsNegative() || vatRatePercent.GreaterThan(hundred) {
		return LineAmounts{}, &InvalidVatRateError{Rate: vatRatePercent}
	}

	qty := decimal.NewFromInt(int64(quantity))
	divisor := one.Add(vatRatePercent.Div(hundred))

	// Div keeps DivisionPrecision (16) digits which is far beyond cent precision
	unitExcl := unitPriceInclVat.Div(divisor)

	lineIncl := unitPriceInclVat.Mul(qty).Round(2)
	lineExcl := unitExcl.Mul(qty).Round(2)
	if vatRatePercent.IsZero() {
		lineExcl = lineIncl
	}

	return LineAmounts{
		UnitPriceInclVat: unitPriceInclVat.Round(2),
		UnitPriceExclVat: unitExcl.Round(2),
		VatAmountPerUnit: unitPriceInclVat.Sub(unitExcl).Round(2),
		Quantity:         quantity,
		VatRatePercent:   vatRatePercent,
		LineTotalExclVat: lineExcl,
		LineTotalInclVat: lineIncl,
		LineVatAmount:    lineIncl.Sub(lineExcl),
	}, nil
}

// CalculateOrder sums line totals into invoice totals.
// Exclusive subtotal and VAT are summed independently from the lines.
func CalculateOrder(lines []LineAmounts) OrderTotals {
	subtotal := decimal.Zero
	vat := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotalExclVat)
		vat = vat.Add(line.LineVatAmount)
	}

	return OrderTotals{
		SubtotalExclVat: subtotal.Round(2),
		VatTotal:        vat.Round(2),
		TotalAmount:     subtotal.Add(vat).Round(2),
	}
}
