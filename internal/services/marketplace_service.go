package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/adapters/marketplace"
	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"
)

// DefaultUploadTimeout bounds one submission including process status polling
const DefaultUploadTimeout = 60 * time.Second

const payloadDateLayout = "2006-01-02"

// uploadOutcome is what one submission attempt produced
type uploadOutcome struct {
	process  *marketplace.ProcessStatus
	response string
	err      error
}

// marketplaceService implements the MarketplaceService interface
type marketplaceService struct {
	repos     *repositories.RepositoryContainer
	client    MarketplaceClient
	documents DocumentService
	timeout   time.Duration
	now       func() time.Time
	logger    *logrus.Logger
}

// NewMarketplaceService creates a new upload coordinator
func NewMarketplaceService(
	repos *repositories.RepositoryContainer,
	client MarketplaceClient,
	documents DocumentService,
	timeout time.Duration,
	logger *logrus.Logger,
) MarketplaceService {
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &marketplaceService{
		repos:     repos,
		client:    client,
		documents: documents,
		timeout:   timeout,
		now:       time.Now,
		logger:    logger,
	}
}

// SubmitInvoice uploads an invoice to the marketplace.
//
// Remote failures never surface as errors: they are stored on the mapping, audited and
// returned as a failed UploadResult so the caller decides whether to retry.
func (s *marketplaceService) SubmitInvoice(ctx context.Context, tenantID, invoiceID, actorID string) (*UploadResult, error) {
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

	switch invoice.Status {
	case models.InvoiceStatusDraft:
		return nil, &InvalidStateError{InvoiceID: invoice.ID, Status: string(invoice.Status), Reason: "invoice must be generated before upload"}
	case models.InvoiceStatusCancelled:
		return nil, &InvalidStateError{InvoiceID: invoice.ID, Status: string(invoice.Status), Reason: "cancelled invoices cannot be uploaded"}
	}

	mapping, err := s.mappingFor(ctx, invoice)
	if err != nil {
		return nil, err
	}
	if mapping.IsUploaded() {
		result := resultFromMapping(mapping)
		result.AlreadyUploaded = true
		return result, nil
	}

	items, err := s.repos.InvoiceItems.ListByInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice items: %w", err)
	}

	outcome := s.upload(ctx, invoice, items, mapping.MarketplaceOrderID)
	if err := s.recordAttempt(ctx, invoice, mapping, outcome, actorID); err != nil {
		return nil, err
	}

	return resultFromMapping(mapping), nil
}

// mappingFor returns the invoice's upload mapping, creating it on first submission
func (s *marketplaceService) mappingFor(ctx context.Context, invoice *models.Invoice) (*models.MarketplaceInvoiceMapping, error) {
	mapping, err := s.repos.Mappings.GetByInvoiceID(ctx, invoice.ID)
	if err == nil {
		return mapping, nil
	}
	if !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to get marketplace mapping: %w", err)
	}

	if invoice.MarketplaceOrderID == nil || *invoice.MarketplaceOrderID == "" {
		return nil, &InvalidStateError{InvoiceID: invoice.ID, Status: string(invoice.Status), Reason: "invoice has no marketplace order"}
	}

	mapping = models.NewMarketplaceInvoiceMapping(invoice.ID, *invoice.MarketplaceOrderID)
	if err := s.repos.Mappings.Create(ctx, mapping); err != nil {
		return nil, fmt.Errorf("failed to create marketplace mapping: %w", err)
	}
	return mapping, nil
}

// upload performs one submission and waits for the marketplace to process it
func (s *marketplaceService) upload(ctx context.Context, invoice *models.Invoice, items []*models.InvoiceLineItem, marketplaceOrderID string) uploadOutcome {
	stored, err := s.repos.Credentials.Get(ctx, invoice.TenantID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return uploadOutcome{err: errors.New("marketplace credentials not configured")}
		}
		return uploadOutcome{err: fmt.Errorf("failed to get marketplace credentials: %w", err)}
	}
	creds := marketplace.Credentials{ClientID: stored.ClientID, ClientSecret: stored.ClientSecret}

	doc, err := s.documents.GetInvoicePDF(ctx, invoice.ID, invoice.TenantID)
	if err != nil {
		return uploadOutcome{err: fmt.Errorf("failed to render invoice document: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	process, err := s.client.UploadInvoice(ctx, creds, marketplace.InvoiceUpload{
		MarketplaceOrderID: marketplaceOrderID,
		FileName:           doc.FileName,
		PDF:                doc.Content,
		Metadata:           BuildInvoiceMetadata(invoice, items),
	})
	if err != nil {
		return uploadOutcome{err: err, response: apiResponseBody(err)}
	}

	if !process.IsTerminal() {
		polled, err := s.client.WaitForProcess(ctx, creds, process.ProcessStatusID)
		if polled != nil {
			process = polled
		}
		if err != nil {
			return uploadOutcome{process: process, response: encodeProcess(process), err: err}
		}
	}

	if !process.Succeeded() {
		reason := process.ErrorMessage
		if reason == "" {
			reason = "no error message"
		}
		return uploadOutcome{
			process:  process,
			response: encodeProcess(process),
			err:      fmt.Errorf("marketplace process %s ended with status %s: %s", process.ProcessStatusID, process.Status, reason),
		}
	}

	return uploadOutcome{process: process, response: encodeProcess(process)}
}

// recordAttempt stores the outcome on the mapping and the invoice and appends the audit entry
func (s *marketplaceService) recordAttempt(
	ctx context.Context,
	invoice *models.Invoice,
	mapping *models.MarketplaceInvoiceMapping,
	outcome uploadOutcome,
	actorID string,
) error {
	attemptAt := s.now().UTC()
	mapping.AttemptCount++
	mapping.LastAttemptAt = &attemptAt
	mapping.LastAttemptResponse = nil
	if outcome.response != "" {
		mapping.LastAttemptResponse = lo.ToPtr(outcome.response)
	}
	if outcome.process != nil && outcome.process.ProcessStatusID != "" {
		mapping.ProcessStatusID = lo.ToPtr(outcome.process.ProcessStatusID)
	}

	details := map[string]interface{}{
		"marketplaceOrderId": mapping.MarketplaceOrderID,
		"attempt":            mapping.AttemptCount,
	}
	action := models.AuditActionMarketplaceUploaded

	if outcome.err != nil {
		mapping.UploadStatus = models.UploadStatusFailed
		mapping.UploadError = lo.ToPtr(outcome.err.Error())
		details["error"] = outcome.err.Error()
		action = models.AuditActionMarketplaceUploadFailed
	} else {
		entityID := outcome.process.EntityID
		if entityID == "" {
			entityID = outcome.process.ProcessStatusID
		}
		mapping.UploadStatus = models.UploadStatusUploaded
		mapping.UploadError = nil
		mapping.MarketplaceInvoiceID = lo.ToPtr(entityID)
		details["marketplaceInvoiceId"] = entityID
	}
	if mapping.ProcessStatusID != nil {
		details["processStatusId"] = *mapping.ProcessStatusID
	}

	entry, err := models.NewAuditLogEntry(invoice.ID, actorID, action, details)
	if err != nil {
		return err
	}

	err = s.repos.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repos.Mappings.Update(ctx, mapping); err != nil {
			return err
		}
		if err := s.repos.Invoices.UpdateUploadStatus(ctx, invoice.ID, mapping.UploadStatus); err != nil {
			return err
		}
		return s.repos.AuditLogs.Append(ctx, entry)
	})
	if err != nil {
		return fmt.Errorf("failed to record marketplace upload: %w", err)
	}
	invoice.MarketplaceUploadStatus = mapping.UploadStatus

	fields := logrus.Fields{
		"invoice_id":           invoice.ID,
		"marketplace_order_id": mapping.MarketplaceOrderID,
		"attempt":              mapping.AttemptCount,
		"status":               mapping.UploadStatus,
	}
	if outcome.err != nil {
		s.logger.WithFields(fields).WithError(outcome.err).Warn("Marketplace upload failed")
	} else {
		s.logger.WithFields(fields).Info("Marketplace upload succeeded")
	}

	return nil
}

// BuildInvoiceMetadata maps a persisted invoice onto the marketplace upload schema
func BuildInvoiceMetadata(invoice *models.Invoice, items []*models.InvoiceLineItem) marketplace.InvoiceMetadata {
	customerVAT := ""
	if invoice.Customer.VATNumber != nil {
		customerVAT = *invoice.Customer.VATNumber
	}
	shipmentID := ""
	if invoice.ShipmentID != nil {
		shipmentID = *invoice.ShipmentID
	}

	return marketplace.InvoiceMetadata{
		InvoiceNumber: invoice.InvoiceNumber,
		InvoiceDate:   invoice.InvoiceDate.Format(payloadDateLayout),
		DueDate:       invoice.DueDate.Format(payloadDateLayout),
		Currency:      invoice.Currency,
		ShipmentID:    shipmentID,
		Seller: marketplace.PartyPayload{
			Name:        invoice.Seller.Name,
			Address:     invoice.Seller.Address,
			City:        invoice.Seller.City,
			PostalCode:  invoice.Seller.PostalCode,
			CountryCode: invoice.Seller.CountryCode,
			VATNumber:   invoice.Seller.VATNumber,
		},
		Customer: marketplace.PartyPayload{
			Name:        invoice.Customer.Name,
			Company:     invoice.Customer.Company,
			Address:     invoice.Customer.Address,
			City:        invoice.Customer.City,
			PostalCode:  invoice.Customer.PostalCode,
			CountryCode: invoice.Customer.CountryCode,
			VATNumber:   customerVAT,
		},
		Lines: lo.Map(items, func(item *models.InvoiceLineItem, _ int) marketplace.InvoiceLinePayload {
			return marketplace.InvoiceLinePayload{
				EAN:              item.EAN,
				Description:      item.ProductName,
				Quantity:         item.Quantity,
				UnitPriceExclVat: item.UnitPriceExclVat.StringFixed(2),
				UnitPriceInclVat: item.UnitPriceInclVat.StringFixed(2),
				VatRate:          item.VatRate.String(),
				VatAmount:        item.VatAmount.StringFixed(2),
				LineTotalInclVat: item.LineTotalInclVat.StringFixed(2),
			}
		}),
		SubtotalExclVat: invoice.SubtotalExclVat.StringFixed(2),
		VatTotal:        invoice.VatTotal.StringFixed(2),
		TotalAmount:     invoice.TotalAmount.StringFixed(2),
		ReverseCharge:   models.IsReverseCharge(items),
	}
}

func resultFromMapping(mapping *models.MarketplaceInvoiceMapping) *UploadResult {
	return &UploadResult{
		InvoiceID:            mapping.InvoiceID,
		MappingStatus:        mapping.UploadStatus,
		MarketplaceOrderID:   mapping.MarketplaceOrderID,
		MarketplaceInvoiceID: mapping.MarketplaceInvoiceID,
		ProcessStatusID:      mapping.ProcessStatusID,
		AttemptCount:         mapping.AttemptCount,
		Error:                mapping.GetUploadError(),
	}
}

func apiResponseBody(err error) string {
	var apiErr *marketplace.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	return ""
}

func encodeProcess(process *marketplace.ProcessStatus) string {
	if process == nil {
		return ""
	}
	encoded, err := json.Marshal(process)
	if err != nil {
		return ""
	}
	return string(encoded)
}
