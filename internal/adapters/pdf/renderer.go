package pdf

import (
	"fmt"
	"strconv"
	"strings"

	"bol-invoice-api/internal/models"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

const dateLayout = "02-01-2006"

var defaultAccent = &props.Color{Red: 31, Green: 78, Blue: 121}

// Renderer turns a persisted invoice into a PDF document
type Renderer struct{}

// NewRenderer creates a PDF renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render builds the invoice PDF. It has no side effects.
func (r *Renderer) Render(invoice *models.Invoice, items []*models.InvoiceLineItem, template *models.InvoiceTemplate) ([]byte, error) {
	if invoice == nil {
		return nil, fmt.Errorf("invoice is required")
	}
	if template == nil {
		template = &models.InvoiceTemplate{ShowEAN: true}
	}

	accent := parseHexColor(template.AccentColor)

	cfg := config.NewBuilder().
		WithLeftMargin(12).
		WithTopMargin(12).
		WithRightMargin(12).
		Build()
	m := maroto.New(cfg)

	if template.FooterText != "" {
		if err := m.RegisterFooter(text.NewRow(8, template.FooterText, props.Text{Size: 7, Align: align.Center})); err != nil {
			return nil, fmt.Errorf("failed to register footer: %w", err)
		}
	}

	m.AddRows(headerRows(invoice, template, accent)...)
	m.AddRows(partyRows(invoice)...)
	m.AddRows(itemRows(invoice, items, template.ShowEAN, accent)...)
	m.AddRows(totalRows(invoice, items)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice PDF: %w", err)
	}

	return doc.GetBytes(), nil
}

func headerRows(invoice *models.Invoice, template *models.InvoiceTemplate, accent *props.Color) []core.Row {
	lang := invoice.Language
	rows := []core.Row{
		row.New(14).Add(
			text.NewCol(7, invoice.Seller.Name, props.Text{Size: 14, Style: fontstyle.Bold, Color: accent}),
			text.NewCol(5, strings.ToUpper(T(lang, "invoice")), props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Right, Color: accent}),
		),
	}
	if template.HeaderText != "" {
		rows = append(rows, text.NewRow(6, template.HeaderText, props.Text{Size: 8, Style: fontstyle.Italic}))
	}

	rows = append(rows,
		keyValueRow(T(lang, "invoice_number"), invoice.InvoiceNumber),
		keyValueRow(T(lang, "invoice_date"), invoice.InvoiceDate.Format(dateLayout)),
		keyValueRow(T(lang, "due_date"), invoice.DueDate.Format(dateLayout)),
	)
	if orderID := marketplaceOrderID(invoice); orderID != "" {
		rows = append(rows, keyValueRow(T(lang, "order"), orderID))
	}
	rows = append(rows, line.NewRow(4, props.Line{Color: accent, Thickness: 0.4}))

	return rows
}

func partyRows(invoice *models.Invoice) []core.Row {
	lang := invoice.Language
	seller := invoice.Seller
	customer := invoice.Customer

	sellerLines := []string{
		seller.Name,
		seller.Address,
		strings.TrimSpace(seller.PostalCode + " " + seller.City),
		seller.CountryCode,
		T(lang, "vat_number") + ": " + seller.VATNumber,
	}
	if seller.ChamberNumber != "" {
		sellerLines = append(sellerLines, T(lang, "coc_number")+": "+seller.ChamberNumber)
	}
	if seller.IBAN != "" {
		sellerLines = append(sellerLines, T(lang, "iban")+": "+seller.IBAN)
	}

	customerLines := []string{T(lang, "bill_to") + ":", customer.Name}
	if customer.Company != "" {
		customerLines = append(customerLines, customer.Company)
	}
	customerLines = append(customerLines,
		customer.Address,
		strings.TrimSpace(customer.PostalCode+" "+customer.City),
		customer.CountryCode,
	)
	if customer.VATNumber != nil && *customer.VATNumber != "" {
		customerLines = append(customerLines, T(lang, "vat_number")+": "+*customer.VATNumber)
	}

	height := float64(max(len(sellerLines), len(customerLines)))*4 + 4
	return []core.Row{
		row.New(height).Add(
			col.New(6).Add(multiline(sellerLines, align.Left)...),
			col.New(6).Add(multiline(customerLines, align.Right)...),
		),
	}
}

func itemRows(invoice *models.Invoice, items []*models.InvoiceLineItem, showEAN bool, accent *props.Color) []core.Row {
	lang := invoice.Language
	headStyle := props.Text{Size: 8, Style: fontstyle.Bold, Color: &props.Color{Red: 255, Green: 255, Blue: 255}}
	headRight := headStyle
	headRight.Align = align.Right

	descSize := 5
	if !showEAN {
		descSize = 7
	}

	headCols := []core.Col{}
	if showEAN {
		headCols = append(headCols, text.NewCol(2, T(lang, "ean"), headStyle))
	}
	headCols = append(headCols,
		text.NewCol(descSize, T(lang, "description"), headStyle),
		text.NewCol(1, T(lang, "quantity"), headRight),
		text.NewCol(2, T(lang, "unit_price"), headRight),
		text.NewCol(1, T(lang, "vat_rate"), headRight),
		text.NewCol(1, T(lang, "line_total"), headRight),
	)
	rows := []core.Row{
		row.New(8).Add(headCols...).WithStyle(&props.Cell{BackgroundColor: accent}),
	}

	cell := props.Text{Size: 8, Top: 1}
	cellRight := cell
	cellRight.Align = align.Right
	for _, item := range items {
		cols := []core.Col{}
		if showEAN {
			cols = append(cols, text.NewCol(2, item.EAN, cell))
		}
		cols = append(cols,
			text.NewCol(descSize, item.ProductName, cell),
			text.NewCol(1, strconv.Itoa(item.Quantity), cellRight),
			text.NewCol(2, formatMoney(lang, invoice.Currency, item.UnitPriceExclVat), cellRight),
			text.NewCol(1, formatPercent(lang, item.VatRate), cellRight),
			text.NewCol(1, formatMoney(lang, invoice.Currency, item.LineTotalInclVat), cellRight),
		)
		rows = append(rows, row.New(7).Add(cols...))
	}

	return rows
}

func totalRows(invoice *models.Invoice, items []*models.InvoiceLineItem) []core.Row {
	lang := invoice.Language
	rows := []core.Row{
		line.NewRow(4),
		totalRow(T(lang, "subtotal"), formatMoney(lang, invoice.Currency, invoice.SubtotalExclVat), false),
		totalRow(T(lang, "vat_total"), formatMoney(lang, invoice.Currency, invoice.VatTotal), false),
		totalRow(T(lang, "total"), formatMoney(lang, invoice.Currency, invoice.TotalAmount), true),
	}

	if models.IsReverseCharge(items) {
		rows = append(rows, text.NewRow(10, T(lang, "reverse_charge"), props.Text{Size: 8, Style: fontstyle.Bold, Top: 4}))
	}
	if notes := invoice.GetNotes(); notes != "" {
		rows = append(rows,
			text.NewRow(6, T(lang, "notes"), props.Text{Size: 8, Style: fontstyle.Bold, Top: 2}),
			text.NewRow(10, notes, props.Text{Size: 8}),
		)
	}

	return rows
}

func keyValueRow(key, value string) core.Row {
	return row.New(5).Add(
		col.New(6),
		text.NewCol(3, key, props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(3, value, props.Text{Size: 8, Align: align.Right}),
	)
}

func totalRow(label, amount string, emphasised bool) core.Row {
	style := props.Text{Size: 9, Align: align.Right}
	if emphasised {
		style.Style = fontstyle.Bold
		style.Size = 10
	}
	return row.New(6).Add(
		col.New(6),
		text.NewCol(3, label, style),
		text.NewCol(3, amount, style),
	)
}

func multiline(lines []string, alignment align.Type) []core.Component {
	components := make([]core.Component, 0, len(lines))
	top := 0.0
	for _, value := range lines {
		if strings.TrimSpace(value) == "" {
			continue
		}
		components = append(components, text.New(value, props.Text{Size: 8, Top: top, Align: alignment}))
		top += 4
	}
	return components
}

func marketplaceOrderID(invoice *models.Invoice) string {
	if invoice.MarketplaceOrderID != nil {
		return *invoice.MarketplaceOrderID
	}
	return invoice.OrderID
}

func formatMoney(lang, currency string, amount decimal.Decimal) string {
	value := amount.StringFixed(2)
	if decimalComma(lang) {
		value = strings.Replace(value, ".", ",", 1)
	}
	symbol := currency
	if currency == "EUR" {
		symbol = "€"
	}
	return symbol + " " + value
}

func formatPercent(lang string, rate decimal.Decimal) string {
	value := rate.String()
	if decimalComma(lang) {
		value = strings.Replace(value, ".", ",", 1)
	}
	return value + "%"
}

// parseHexColor converts "#RRGGBB" into a maroto color, falling back to the default accent
func parseHexColor(hex string) *props.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return defaultAccent
	}
	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return defaultAccent
	}
	return &props.Color{
		Red:   int(value >> 16 & 0xFF),
		Green: int(value >> 8 & 0xFF),
		Blue:  int(value & 0xFF),
	}
}
