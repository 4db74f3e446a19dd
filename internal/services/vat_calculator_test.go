package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateLine(t *testing.T) {
	tests := []struct {
		name         string
		price        string
		quantity     int
		rate         string
		wantUnitExcl string
		wantExcl     string
		wantIncl     string
		wantVat      string
	}{
		{
			name:         "Dutch standard rate",
			price:        "100.00",
			quantity:     1,
			rate:         "21",
			wantUnitExcl: "82.64",
			wantExcl:     "82.64",
			wantIncl:     "100.00",
			wantVat:      "17.36",
		},
		{
			name:         "French standard rate with two units",
			price:        "50.00",
			quantity:     2,
			rate:         "20",
			wantUnitExcl: "41.67",
			wantExcl:     "83.33",
			wantIncl:     "100.00",
			wantVat:      "16.67",
		},
		{
			name:         "rounding happens once per line",
			price:        "9.99",
			quantity:     3,
			rate:         "19",
			wantUnitExcl: "8.39",
			wantExcl:     "25.18",
			wantIncl:     "29.97",
			wantVat:      "4.79",
		},
		{
			name:         "reverse charge is zero rated",
			price:        "100.00",
			quantity:     1,
			rate:         "0",
			wantUnitExcl: "100.00",
			wantExcl:     "100.00",
			wantIncl:     "100.00",
			wantVat:      "0.00",
		},
		{
			name:         "free item",
			price:        "0",
			quantity:     4,
			rate:         "21",
			wantUnitExcl: "0",
			wantExcl:     "0",
			wantIncl:     "0",
			wantVat:      "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := CalculateLine(dec(tt.price), tt.quantity, dec(tt.rate))
			require.NoError(t, err)

			assert.True(t, dec(tt.wantUnitExcl).Equal(line.UnitPriceExclVat), "unit excl: %s", line.UnitPriceExclVat)
			assert.True(t, dec(tt.wantExcl).Equal(line.LineTotalExclVat), "line excl: %s", line.LineTotalExclVat)
			assert.True(t, dec(tt.wantIncl).Equal(line.LineTotalInclVat), "line incl: %s", line.LineTotalInclVat)
			assert.True(t, dec(tt.wantVat).Equal(line.LineVatAmount), "line vat: %s", line.LineVatAmount)
			assert.True(t, line.LineTotalExclVat.Add(line.LineVatAmount).Equal(line.LineTotalInclVat))
			assert.Equal(t, tt.quantity, line.Quantity)
		})
	}
}

func TestCalculateLine_Errors(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		quantity int
		rate     string
		wantLine bool
		wantRate bool
	}{
		{name: "zero quantity", price: "10", quantity: 0, rate: "21", wantLine: true},
		{name: "negative quantity", price: "10", quantity: -1, rate: "21", wantLine: true},
		{name: "negative price", price: "-0.01", quantity: 1, rate: "21", wantLine: true},
		{name: "negative rate", price: "10", quantity: 1, rate: "-1", wantRate: true},
		{name: "rate above 100", price: "10", quantity: 1, rate: "100.5", wantRate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateLine(dec(tt.price), tt.quantity, dec(tt.rate))
			require.Error(t, err)

			var lineErr *InvalidLineItemError
			var rateErr *InvalidVatRateError
			assert.Equal(t, tt.wantLine, errors.As(err, &lineErr))
			assert.Equal(t, tt.wantRate, errors.As(err, &rateErr))
		})
	}
}

func TestCalculateOrder(t *testing.T) {
	nl, err := CalculateLine(dec("100.00"), 1, dec("21"))
	require.NoError(t, err)
	fr, err := CalculateLine(dec("50.00"), 2, dec("20"))
	require.NoError(t, err)

	totals := CalculateOrder([]LineAmounts{nl, fr})

	assert.Equal(t, "165.97", totals.SubtotalExclVat.StringFixed(2))
	assert.Equal(t, "34.03", totals.VatTotal.StringFixed(2))
	assert.Equal(t, "200.00", totals.TotalAmount.StringFixed(2))
	assert.True(t, totals.SubtotalExclVat.Add(totals.VatTotal).Equal(totals.TotalAmount))

	empty := CalculateOrder(nil)
	assert.True(t, empty.TotalAmount.IsZero())
}
