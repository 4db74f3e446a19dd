package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

const invoiceColumns = `
	id, invoice_number, tenant_id, order_id, marketplace_order_id, shipment_id, template_id,
	customer_json, seller_json, invoice_date, due_date, currency, subtotal_excl_vat, vat_total,
	total_amount, status, language, marketplace_upload_status, notes, created_at, updated_at`

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// InvoiceRepository implements the InvoiceRepository interface for SQLite
type InvoiceRepository struct {
	*BaseRepository[models.Invoice]
}

// NewInvoiceRepository creates a new SQLite invoice repository
func NewInvoiceRepository(db *sql.DB, logger *logrus.Logger) repositories.InvoiceRepository {
	return &InvoiceRepository{
		BaseRepository: NewBaseRepository[models.Invoice](db, "invoices", logger),
	}
}

// Create creates a new invoice
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return repositories.ValidationError("invoice", invoice.ID, err)
	}

	customerJSON, err := json.Marshal(invoice.Customer)
	if err != nil {
		return repositories.NewRepositoryError("create", "invoice", invoice.ID, err)
	}
	sellerJSON, err := json.Marshal(invoice.Seller)
	if err != nil {
		return repositories.NewRepositoryError("create", "invoice", invoice.ID, err)
	}

	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.executeExec(ctx, "create", query,
		invoice.ID,
		invoice.InvoiceNumber,
		invoice.TenantID,
		invoice.OrderID,
		invoice.MarketplaceOrderID,
		invoice.ShipmentID,
		invoice.TemplateID,
		string(customerJSON),
		string(sellerJSON),
		invoice.InvoiceDate.UTC(),
		invoice.DueDate.UTC(),
		invoice.Currency,
		invoice.SubtotalExclVat.StringFixed(2),
		invoice.VatTotal.StringFixed(2),
		invoice.TotalAmount.StringFixed(2),
		invoice.Status,
		invoice.Language,
		invoice.MarketplaceUploadStatus,
		invoice.Notes,
		invoice.CreatedAt.UTC(),
		invoice.UpdatedAt.UTC(),
	)
	if err != nil {
		if repositories.IsDuplicate(err) {
			return repositories.DuplicateError("invoice", "invoice_number", invoice.InvoiceNumber)
		}
		return err
	}

	return nil
}

// GetByID retrieves an invoice by ID
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`
	invoice, err := scanInvoice(r.executeQueryRow(ctx, "get_by_id", query, id))
	if err != nil {
		return nil, r.notFoundOr(err, "get_by_id", id)
	}

	return invoice, nil
}

// List retrieves a page of invoices for a tenant, newest first
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, int64, error) {
	filter.Normalize()

	where := []string{"tenant_id = ?"}
	args := []interface{}{filter.TenantID}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filter.Status)
	}
	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM invoices " + whereClause
	if err := r.executeQueryRow(ctx, "count", countQuery, args...).Scan(&total); err != nil {
		return nil, 0, repositories.NewRepositoryError("count", "invoice", "", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices %s
		ORDER BY invoice_date DESC, invoice_number DESC
		LIMIT ? OFFSET ?`, invoiceColumns, whereClause)

	rows, err := r.executeQuery(ctx, "list", query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, err
	}

	invoices, err := r.scanAll(rows, "list", func(rows *sql.Rows) (*models.Invoice, error) {
		return scanInvoice(rows)
	})
	if err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

// UpdateStatus performs a conditional status change
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id string, from, to models.InvoiceStatus) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	query := `UPDATE invoices SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := r.executeExec(ctx, "update_status", query, to, time.Now().UTC(), id, from)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError("update_status", "invoice", id, err)
	}
	if affected == 0 {
		return repositories.ConcurrencyError("invoice", id,
			fmt.Sprintf("invoice %s is no longer in status %s", id, from))
	}

	return nil
}

// UpdateUploadStatus records the marketplace upload status
func (r *InvoiceRepository) UpdateUploadStatus(ctx context.Context, id string, status models.UploadStatus) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	query := `UPDATE invoices SET marketplace_upload_status = ?, updated_at = ? WHERE id = ?`
	result, err := r.executeExec(ctx, "update_upload_status", query, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	return r.checkRowsAffected(result, "update_upload_status", id)
}

// LatestNumber returns the numerically highest "{prefix}-{digits}" invoice number of a tenant
func (r *InvoiceRepository) LatestNumber(ctx context.Context, tenantID, prefix string) (string, error) {
	pattern := globEscape(prefix) + "-"
	query := `
		SELECT invoice_number FROM invoices
		WHERE tenant_id = ?
		  AND invoice_number GLOB ?
		  AND invoice_number NOT GLOB ?
		ORDER BY CAST(SUBSTR(invoice_number, ?) AS INTEGER) DESC
		LIMIT 1`

	var number string
	err := r.executeQueryRow(ctx, "latest_number", query,
		tenantID,
		pattern+"[0-9]*",
		pattern+"*[^0-9]*",
		// byte length equals SQLite's character offset only while numberPrefixPattern stays ASCII
		len(prefix)+2,
	).Scan(&number)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", repositories.NewRepositoryError("latest_number", "invoice", "", err)
	}

	return number, nil
}

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	var customerJSON, sellerJSON string

	err := row.Scan(
		&invoice.ID,
		&invoice.InvoiceNumber,
		&invoice.TenantID,
		&invoice.OrderID,
		&invoice.MarketplaceOrderID,
		&invoice.ShipmentID,
		&invoice.TemplateID,
		&customerJSON,
		&sellerJSON,
		&invoice.InvoiceDate,
		&invoice.DueDate,
		&invoice.Currency,
		&invoice.SubtotalExclVat,
		&invoice.VatTotal,
		&invoice.TotalAmount,
		&invoice.Status,
		&invoice.Language,
		&invoice.MarketplaceUploadStatus,
		&invoice.Notes,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(customerJSON), &invoice.Customer); err != nil {
		return nil, fmt.Errorf("failed to decode customer snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(sellerJSON), &invoice.Seller); err != nil {
		return nil, fmt.Errorf("failed to decode seller snapshot: %w", err)
	}

	return invoice, nil
}

// globEscape quotes GLOB metacharacters so prefix matches literally
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			b.WriteRune('[')
			b.WriteRune(r)
			b.WriteRune(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
