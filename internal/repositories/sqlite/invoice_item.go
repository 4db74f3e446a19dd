package sqlite

import (
	"context"
	"database/sql"

	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// InvoiceItemRepository implements the InvoiceItemRepository interface for SQLite
type InvoiceItemRepository struct {
	*BaseRepository[models.InvoiceLineItem]
}

// NewInvoiceItemRepository creates a new SQLite invoice item repository
func NewInvoiceItemRepository(db *sql.DB, logger *logrus.Logger) repositories.InvoiceItemRepository {
	return &InvoiceItemRepository{
		BaseRepository: NewBaseRepository[models.InvoiceLineItem](db, "invoice_items", logger),
	}
}

// CreateBatch inserts the line items of an invoice
func (r *InvoiceItemRepository) CreateBatch(ctx context.Context, items []*models.InvoiceLineItem) error {
	query := `
		INSERT INTO invoice_items (
			id, invoice_id, line_number, vat_rule_id, ean, product_name, quantity,
			unit_price_incl_vat, unit_price_excl_vat, vat_rate, vat_amount_per_unit, vat_amount,
			line_total_excl_vat, line_total_incl_vat, reverse_charge
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return repositories.ValidationError("invoice_item", item.ID, err)
		}

		_, err := r.executeExec(ctx, "create", query,
			item.ID,
			item.InvoiceID,
			item.LineNumber,
			item.VatRuleID,
			item.EAN,
			item.ProductName,
			item.Quantity,
			item.UnitPriceInclVat.String(),
			item.UnitPriceExclVat.StringFixed(2),
			item.VatRate.String(),
			item.VatAmountPerUnit.StringFixed(2),
			item.VatAmount.StringFixed(2),
			item.LineTotalExclVat.StringFixed(2),
			item.LineTotalInclVat.StringFixed(2),
			item.ReverseCharge,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// ListByInvoice retrieves the line items of an invoice
func (r *InvoiceItemRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*models.InvoiceLineItem, error) {
	if err := r.validateID(invoiceID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, invoice_id, line_number, vat_rule_id, ean, product_name, quantity,
			   unit_price_incl_vat, unit_price_excl_vat, vat_rate, vat_amount_per_unit, vat_amount,
			   line_total_excl_vat, line_total_incl_vat, reverse_charge
		FROM invoice_items
		WHERE invoice_id = ?
		ORDER BY line_number`

	rows, err := r.executeQuery(ctx, "list_by_invoice", query, invoiceID)
	if err != nil {
		return nil, err
	}

	return r.scanAll(rows, "list_by_invoice", func(rows *sql.Rows) (*models.InvoiceLineItem, error) {
		item := &models.InvoiceLineItem{}
		err := rows.Scan(
			&item.ID,
			&item.InvoiceID,
			&item.LineNumber,
			&item.VatRuleID,
			&item.EAN,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPriceInclVat,
			&item.UnitPriceExclVat,
			&item.VatRate,
			&item.VatAmountPerUnit,
			&item.VatAmount,
			&item.LineTotalExclVat,
			&item.LineTotalInclVat,
			&item.ReverseCharge,
		)
		return item, err
	})
}
