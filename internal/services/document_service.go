package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/adapters/storage"
	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"
)

// documentService implements the DocumentService interface
type documentService struct {
	repos    *repositories.RepositoryContainer
	renderer DocumentRenderer
	archive  storage.FileStorage
	logger   *logrus.Logger
}

// NewDocumentService creates a document service. A nil archive renders on every request.
func NewDocumentService(
	repos *repositories.RepositoryContainer,
	renderer DocumentRenderer,
	archive storage.FileStorage,
	logger *logrus.Logger,
) DocumentService {
	if logger == nil {
		logger = logrus.New()
	}
	return &documentService{
		repos:    repos,
		renderer: renderer,
		archive:  archive,
		logger:   logger,
	}
}

// GetInvoicePDF returns the invoice document of a tenant's invoice.
// Invoices are immutable after insert so an archived document never goes stale.
func (s *documentService) GetInvoicePDF(ctx context.Context, invoiceID, tenantID string) (*InvoiceDocument, error) {
	invoice, err := s.repos.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &InvoiceNotFoundError{InvoiceID: invoiceID}
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	if invoice.TenantID != tenantID {
		return nil, &InvoiceNotFoundError{InvoiceID: invoiceID}
	}

	doc := &InvoiceDocument{FileName: invoice.InvoiceNumber + ".pdf"}
	key := storage.InvoiceDocumentKey(invoice.TenantID, invoice.InvoiceNumber)

	if s.archive != nil {
		content, err := s.archive.Retrieve(ctx, key)
		if err == nil {
			doc.Content = content
			doc.Cached = true
			return doc, nil
		}
		if !storage.IsNotFound(err) {
			s.logger.WithError(err).WithField("key", key).Warn("Failed to read archived invoice document")
		}
	}

	items, err := s.repos.InvoiceItems.ListByInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice items: %w", err)
	}

	content, err := s.RenderInvoice(ctx, invoice, items)
	if err != nil {
		return nil, err
	}
	doc.Content = content

	if s.archive != nil {
		opts := &storage.StoreOptions{ContentType: "application/pdf", Overwrite: true}
		if err := s.archive.Store(ctx, key, content, opts); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Failed to archive invoice document")
		} else {
			s.recordRendered(ctx, invoice, key, len(content))
		}
	}

	return doc, nil
}

// RenderInvoice renders an invoice with its own template, falling back to the tenant default
func (s *documentService) RenderInvoice(ctx context.Context, invoice *models.Invoice, items []*models.InvoiceLineItem) ([]byte, error) {
	template, err := s.templateFor(ctx, invoice)
	if err != nil {
		return nil, err
	}

	content, err := s.renderer.Render(invoice, items, template)
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice %s: %w", invoice.InvoiceNumber, err)
	}

	return content, nil
}

func (s *documentService) templateFor(ctx context.Context, invoice *models.Invoice) (*models.InvoiceTemplate, error) {
	if invoice.TemplateID != "" {
		template, err := s.repos.Templates.GetByID(ctx, invoice.TemplateID)
		if err == nil {
			return template, nil
		}
		if !repositories.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get invoice template: %w", err)
		}
	}

	template, err := s.repos.Templates.GetDefault(ctx, invoice.TenantID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &TemplateNotFoundError{TemplateID: invoice.TemplateID, TenantID: invoice.TenantID}
		}
		return nil, fmt.Errorf("failed to get default invoice template: %w", err)
	}
	return template, nil
}

func (s *documentService) recordRendered(ctx context.Context, invoice *models.Invoice, key string, size int) {
	entry, err := models.NewAuditLogEntry(invoice.ID, models.SystemActorID, models.AuditActionPDFRendered, map[string]interface{}{
		"storageKey": key,
		"size":       size,
	})
	if err == nil {
		err = s.repos.AuditLogs.Append(ctx, entry)
	}
	if err != nil {
		s.logger.WithError(err).WithField("invoice_id", invoice.ID).Warn("Failed to record rendered document")
	}
}
