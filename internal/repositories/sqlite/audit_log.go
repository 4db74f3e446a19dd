package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// AuditLogRepository implements the append-only AuditLogRepository for SQLite
type AuditLogRepository struct {
	*BaseRepository[models.InvoiceAuditLogEntry]
}

// NewAuditLogRepository creates a new SQLite audit log repository
func NewAuditLogRepository(db *sql.DB, logger *logrus.Logger) repositories.AuditLogRepository {
	return &AuditLogRepository{
		BaseRepository: NewBaseRepository[models.InvoiceAuditLogEntry](db, "invoice_audit_logs", logger),
	}
}

// Append inserts a new audit entry
func (r *AuditLogRepository) Append(ctx context.Context, entry *models.InvoiceAuditLogEntry) error {
	if err := entry.Validate(); err != nil {
		return repositories.ValidationError("invoice_audit_log", entry.ID, err)
	}

	var details interface{}
	if len(entry.DetailsJSON) > 0 {
		details = string(entry.DetailsJSON)
	}

	query := `
		INSERT INTO invoice_audit_logs (id, invoice_id, actor_id, action, details_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.executeExec(ctx, "append", query,
		entry.ID,
		entry.InvoiceID,
		entry.ActorID,
		entry.Action,
		details,
		entry.CreatedAt.UTC(),
	)
	return err
}

// ListByInvoice retrieves audit entries of an invoice, newest first
func (r *AuditLogRepository) ListByInvoice(ctx context.Context, invoiceID string, limit int) ([]*models.InvoiceAuditLogEntry, error) {
	if err := r.validateID(invoiceID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, invoice_id, actor_id, action, details_json, created_at
		FROM invoice_audit_logs
		WHERE invoice_id = ?
		ORDER BY created_at DESC, rowid DESC`
	args := []interface{}{invoiceID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.executeQuery(ctx, "list_by_invoice", query, args...)
	if err != nil {
		return nil, err
	}

	return r.scanAll(rows, "list_by_invoice", func(rows *sql.Rows) (*models.InvoiceAuditLogEntry, error) {
		entry := &models.InvoiceAuditLogEntry{}
		var details sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.InvoiceID,
			&entry.ActorID,
			&entry.Action,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if details.Valid && details.String != "" {
			entry.DetailsJSON = json.RawMessage(details.String)
		}
		return entry, nil
	})
}
