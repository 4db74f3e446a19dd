package sqlite

import (
	"context"
	"database/sql"
	"time"

	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// MarketplaceMappingRepository implements the MarketplaceMappingRepository interface for SQLite
type MarketplaceMappingRepository struct {
	*BaseRepository[models.MarketplaceInvoiceMapping]
}

// NewMarketplaceMappingRepository creates a new SQLite marketplace mapping repository
func NewMarketplaceMappingRepository(db *sql.DB, logger *logrus.Logger) repositories.MarketplaceMappingRepository {
	return &MarketplaceMappingRepository{
		BaseRepository: NewBaseRepository[models.MarketplaceInvoiceMapping](db, "marketplace_invoice_mappings", logger),
	}
}

// Create creates a new mapping
func (r *MarketplaceMappingRepository) Create(ctx context.Context, mapping *models.MarketplaceInvoiceMapping) error {
	if err := mapping.Validate(); err != nil {
		return repositories.ValidationError("marketplace_invoice_mapping", mapping.ID, err)
	}

	query := `
		INSERT INTO marketplace_invoice_mappings (
			id, invoice_id, marketplace_order_id, marketplace_invoice_id, process_status_id,
			upload_status, upload_error, last_attempt_response, attempt_count, last_attempt_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.executeExec(ctx, "create", query,
		mapping.ID,
		mapping.InvoiceID,
		mapping.MarketplaceOrderID,
		mapping.MarketplaceInvoiceID,
		mapping.ProcessStatusID,
		mapping.UploadStatus,
		mapping.UploadError,
		mapping.LastAttemptResponse,
		mapping.AttemptCount,
		nullableTime(mapping.LastAttemptAt),
		mapping.CreatedAt.UTC(),
		mapping.UpdatedAt.UTC(),
	)
	if err != nil {
		if repositories.IsDuplicate(err) {
			return repositories.DuplicateError("marketplace_invoice_mapping", "invoice_id", mapping.InvoiceID)
		}
		return err
	}

	return nil
}

// GetByInvoiceID retrieves the mapping of an invoice
func (r *MarketplaceMappingRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*models.MarketplaceInvoiceMapping, error) {
	if err := r.validateID(invoiceID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, invoice_id, marketplace_order_id, marketplace_invoice_id, process_status_id,
			   upload_status, upload_error, last_attempt_response, attempt_count, last_attempt_at,
			   created_at, updated_at
		FROM marketplace_invoice_mappings
		WHERE invoice_id = ?`

	mapping := &models.MarketplaceInvoiceMapping{}
	var lastAttemptAt sql.NullTime
	err := r.executeQueryRow(ctx, "get_by_invoice_id", query, invoiceID).Scan(
		&mapping.ID,
		&mapping.InvoiceID,
		&mapping.MarketplaceOrderID,
		&mapping.MarketplaceInvoiceID,
		&mapping.ProcessStatusID,
		&mapping.UploadStatus,
		&mapping.UploadError,
		&mapping.LastAttemptResponse,
		&mapping.AttemptCount,
		&lastAttemptAt,
		&mapping.CreatedAt,
		&mapping.UpdatedAt,
	)
	if err != nil {
		return nil, r.notFoundOr(err, "get_by_invoice_id", invoiceID)
	}
	if lastAttemptAt.Valid {
		mapping.LastAttemptAt = &lastAttemptAt.Time
	}

	return mapping, nil
}

// Update overwrites the mutable upload fields of a mapping
func (r *MarketplaceMappingRepository) Update(ctx context.Context, mapping *models.MarketplaceInvoiceMapping) error {
	if err := mapping.Validate(); err != nil {
		return repositories.ValidationError("marketplace_invoice_mapping", mapping.ID, err)
	}

	mapping.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE marketplace_invoice_mappings
		SET marketplace_invoice_id = ?, process_status_id = ?, upload_status = ?, upload_error = ?,
			last_attempt_response = ?, attempt_count = ?, last_attempt_at = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.executeExec(ctx, "update", query,
		mapping.MarketplaceInvoiceID,
		mapping.ProcessStatusID,
		mapping.UploadStatus,
		mapping.UploadError,
		mapping.LastAttemptResponse,
		mapping.AttemptCount,
		nullableTime(mapping.LastAttemptAt),
		mapping.UpdatedAt,
		mapping.ID,
	)
	if err != nil {
		return err
	}

	return r.checkRowsAffected(result, "update", mapping.ID)
}
