package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"
)

// recentAuditEntries is how many audit entries GetInvoice returns
const recentAuditEntries = 10

// invoiceService implements the InvoiceService interface
type invoiceService struct {
	repos         *repositories.RepositoryContainer
	orders        OrderSource
	vat           VatService
	numbers       InvoiceNumberGenerator
	numberRetries int
	now           func() time.Time
	validator     *validator.Validate
	logger        *logrus.Logger
}

// NewInvoiceService creates a new invoice service instance
func NewInvoiceService(
	repos *repositories.RepositoryContainer,
	orders OrderSource,
	vat VatService,
	numbers InvoiceNumberGenerator,
	numberRetries int,
	logger *logrus.Logger,
) InvoiceService {
	if numberRetries <= 0 {
		numberRetries = DefaultNumberRetries
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &invoiceService{
		repos:         repos,
		orders:        orders,
		vat:           vat,
		numbers:       numbers,
		numberRetries: numberRetries,
		now:           time.Now,
		validator:     validator.New(),
		logger:        logger,
	}
}

// GenerateInvoice creates a draft invoice from a marketplace order.
// The invoice, its lines, the audit entry and the optional upload mapping are written atomically.
func (s *invoiceService) GenerateInvoice(ctx context.Context, req *GenerateInvoiceRequest) (*GeneratedInvoice, error) {
	if req == nil {
		return nil, fmt.Errorf("generate invoice request cannot be nil")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, &RequestValidationError{Err: err}
	}

	order, err := s.orders.GetOrder(ctx, req.OrderID, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil || order.TenantID != req.TenantID {
		return nil, &OrderNotFoundError{OrderID: req.OrderID, TenantID: req.TenantID}
	}

	settings, err := s.loadSettings(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	template, err := s.resolveTemplate(ctx, req.TenantID, req.TemplateID)
	if err != nil {
		return nil, err
	}

	number, err := s.allocateNumber(ctx, req.TenantID, settings.NumberPrefix, req.Sequence)
	if err != nil {
		return nil, err
	}

	customer, vatNumber := s.customerSnapshot(order, req.CustomerVATNumber)
	invoice := s.newInvoice(req, order, settings, template, customer)

	items, totals, err := s.buildLines(ctx, invoice.ID, order, VatResolution{
		CustomerVATNumber: vatNumber,
		IsB2B:             order.IsB2B || hasOverride(req.CustomerVATNumber),
		SellerCountry:     settings.Seller.CountryCode,
	})
	if err != nil {
		return nil, err
	}
	invoice.SubtotalExclVat = totals.SubtotalExclVat
	invoice.VatTotal = totals.VatTotal
	invoice.TotalAmount = totals.TotalAmount

	var entry *models.InvoiceAuditLogEntry
	for attempt := 1; ; attempt++ {
		invoice.InvoiceNumber = number
		entry, err = s.persist(ctx, invoice, items, req.ActorID)
		if err == nil {
			break
		}
		if !repositories.IsDuplicate(err) {
			return nil, fmt.Errorf("failed to persist invoice: %w", err)
		}
		if req.Sequence != nil || attempt >= s.numberRetries {
			return nil, &InvoiceNumberConflictError{TenantID: req.TenantID, Prefix: settings.NumberPrefix, Attempts: attempt}
		}

		s.logger.WithFields(logrus.Fields{
			"tenant_id":      req.TenantID,
			"invoice_number": number,
			"attempt":        attempt,
		}).Warn("Invoice number already taken, re-reading sequence")

		if number, err = s.numbers.Next(ctx, req.TenantID, settings.NumberPrefix); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id":      invoice.TenantID,
		"invoice_id":     invoice.ID,
		"invoice_number": invoice.InvoiceNumber,
		"order_id":       invoice.OrderID,
		"total":          invoice.TotalAmount.StringFixed(2),
	}).Info("Invoice generated")

	return &GeneratedInvoice{
		Invoice:  invoice,
		Items:    items,
		AuditLog: []*models.InvoiceAuditLogEntry{entry},
	}, nil
}

func (s *invoiceService) loadSettings(ctx context.Context, tenantID string) (*models.InvoiceSettings, error) {
	settings, err := s.repos.Settings.Get(ctx, tenantID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &SettingsNotConfiguredError{TenantID: tenantID}
		}
		return nil, fmt.Errorf("failed to get invoice settings: %w", err)
	}

	settings.ApplyDefaults()
	if missing := settings.MissingFields(); len(missing) > 0 {
		return nil, &SettingsNotConfiguredError{TenantID: tenantID, Missing: missing}
	}

	return settings, nil
}

// resolveTemplate returns the explicitly requested template or the tenant's default
func (s *invoiceService) resolveTemplate(ctx context.Context, tenantID string, templateID *string) (*models.InvoiceTemplate, error) {
	if templateID != nil && strings.TrimSpace(*templateID) != "" {
		template, err := s.repos.Templates.GetByID(ctx, *templateID)
		if err != nil && !repositories.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get invoice template: %w", err)
		}
		if template == nil || template.TenantID != tenantID {
			return nil, &TemplateNotFoundError{TemplateID: *templateID, TenantID: tenantID}
		}
		return template, nil
	}

	template, err := s.repos.Templates.GetDefault(ctx, tenantID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &TemplateNotFoundError{TenantID: tenantID}
		}
		return nil, fmt.Errorf("failed to get default invoice template: %w", err)
	}

	return template, nil
}

func (s *invoiceService) allocateNumber(ctx context.Context, tenantID, prefix string, sequence *int) (string, error) {
	if sequence != nil {
		return s.numbers.Format(prefix, *sequence), nil
	}
	return s.numbers.Next(ctx, tenantID, prefix)
}

// hasOverride reports whether the caller supplied a VAT number, which marks the sale as B2B
func hasOverride(vatNumber *string) bool {
	return vatNumber != nil && strings.TrimSpace(*vatNumber) != ""
}

// customerSnapshot copies the order's customer, preferring an explicitly supplied VAT number.
// The second result is the normalized VAT number when it is well-formed, else empty.
func (s *invoiceService) customerSnapshot(order *models.Order, override *string) (models.CustomerDetails, string) {
	customer := order.Customer
	customer.CountryCode = strings.ToUpper(customer.CountryCode)

	raw := ""
	if override != nil && strings.TrimSpace(*override) != "" {
		raw = *override
	} else if customer.VATNumber != nil {
		raw = *customer.VATNumber
	}
	if strings.TrimSpace(raw) == "" {
		customer.VATNumber = nil
		return customer, ""
	}

	check := models.ValidateVATNumber(raw)
	normalized := check.Normalized
	customer.VATNumber = &normalized
	if !check.Valid {
		s.logger.WithFields(logrus.Fields{
			"order_id": order.ID,
			"reason":   check.Reason,
		}).Warn("Customer VAT number is malformed, reverse charge not applied")
		return customer, ""
	}

	return customer, normalized
}

func (s *invoiceService) newInvoice(
	req *GenerateInvoiceRequest,
	order *models.Order,
	settings *models.InvoiceSettings,
	template *models.InvoiceTemplate,
	customer models.CustomerDetails,
) *models.Invoice {
	now := s.now().UTC()
	invoiceDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	language := strings.ToLower(req.Language)
	if language == "" {
		language = settings.DefaultLanguage
	}
	currency := strings.ToUpper(order.Currency)
	if currency == "" {
		currency = settings.Currency
	}

	return &models.Invoice{
		ID:                      uuid.New().String(),
		TenantID:                req.TenantID,
		OrderID:                 order.ID,
		MarketplaceOrderID:      order.MarketplaceOrderID,
		ShipmentID:              req.ShipmentID,
		TemplateID:              template.ID,
		Customer:                customer,
		Seller:                  settings.Seller,
		InvoiceDate:             invoiceDate,
		DueDate:                 invoiceDate.AddDate(0, 0, settings.PaymentTermsDays),
		Currency:                currency,
		Status:                  models.InvoiceStatusDraft,
		Language:                language,
		MarketplaceUploadStatus: models.UploadStatusPending,
		Notes:                   req.Notes,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

// buildLines resolves a VAT rule per order line and computes the line and invoice amounts.
// base carries the customer and seller facts shared by every line.
func (s *invoiceService) buildLines(ctx context.Context, invoiceID string, order *models.Order, base VatResolution) ([]*models.InvoiceLineItem, OrderTotals, error) {
	if len(order.Items) == 0 {
		return nil, OrderTotals{}, &InvalidLineItemError{Reason: "order has no items"}
	}

	resolved := make(map[string]*models.VatRule)
	items := make([]*models.InvoiceLineItem, 0, len(order.Items))
	amounts := make([]LineAmounts, 0, len(order.Items))

	for i, orderItem := range order.Items {
		destination := order.DestinationCountry(orderItem)

		rule, ok := resolved[destination]
		if !ok {
			resolution := base
			resolution.DestinationCountry = destination
			var err error
			if rule, err = s.vat.Resolve(ctx, resolution); err != nil {
				return nil, OrderTotals{}, err
			}
			resolved[destination] = rule
		}

		line, err := CalculateLine(orderItem.UnitPriceInclVat, orderItem.Quantity, rule.RatePercent)
		if err != nil {
			var lineErr *InvalidLineItemError
			if errors.As(err, &lineErr) {
				lineErr.Line = i + 1
			}
			return nil, OrderTotals{}, err
		}
		amounts = append(amounts, line)

		items = append(items, &models.InvoiceLineItem{
			ID:               uuid.New().String(),
			InvoiceID:        invoiceID,
			LineNumber:       i + 1,
			VatRuleID:        rule.ID,
			EAN:              orderItem.EAN,
			ProductName:      orderItem.ProductName,
			Quantity:         line.Quantity,
			UnitPriceInclVat: line.UnitPriceInclVat,
			UnitPriceExclVat: line.UnitPriceExclVat,
			VatRate:          line.VatRatePercent,
			VatAmountPerUnit: line.VatAmountPerUnit,
			VatAmount:        line.LineVatAmount,
			LineTotalExclVat: line.LineTotalExclVat,
			LineTotalInclVat: line.LineTotalInclVat,
			ReverseCharge:    rule.IsReverseCharge(),
		})
	}

	return items, CalculateOrder(amounts), nil
}

func (s *invoiceService) persist(ctx context.Context, invoice *models.Invoice, items []*models.InvoiceLineItem, actorID string) (*models.InvoiceAuditLogEntry, error) {
	entry, err := models.NewAuditLogEntry(invoice.ID, actorID, models.AuditActionInvoiceGenerated, map[string]interface{}{
		"invoiceNumber": invoice.InvoiceNumber,
		"orderId":       invoice.OrderID,
		"lineCount":     len(items),
		"totalAmount":   invoice.TotalAmount.StringFixed(2),
		"reverseCharge": models.IsReverseCharge(items),
	})
	if err != nil {
		return nil, err
	}

	err = s.repos.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repos.Invoices.Create(ctx, invoice); err != nil {
			return err
		}
		if err := s.repos.InvoiceItems.CreateBatch(ctx, items); err != nil {
			return fmt.Errorf("failed to create invoice items: %w", err)
		}
		if err := s.repos.AuditLogs.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
		if invoice.MarketplaceOrderID != nil && *invoice.MarketplaceOrderID != "" {
			mapping := models.NewMarketplaceInvoiceMapping(invoice.ID, *invoice.MarketplaceOrderID)
			if err := s.repos.Mappings.Create(ctx, mapping); err != nil {
				return fmt.Errorf("failed to create marketplace mapping: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// UpdateInvoiceStatus moves an invoice along its lifecycle and records the transition
func (s *invoiceService) UpdateInvoiceStatus(ctx context.Context, req *UpdateStatusRequest) (*models.Invoice, error) {
	if req == nil {
		return nil, fmt.Errorf("update status request cannot be nil")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, &RequestValidationError{Err: err}
	}

	target, ok := models.ParseInvoiceStatus(req.Status)
	if !ok {
		return nil, &InvalidStatusError{Status: req.Status}
	}

	invoice, err := s.getOwnedInvoice(ctx, req.InvoiceID, req.TenantID)
	if err != nil {
		return nil, err
	}

	previous := invoice.Status
	if !models.CanTransitionStatus(previous, target) {
		return nil, &InvalidStatusError{From: string(previous), Status: string(target)}
	}

	details := map[string]interface{}{
		"previousStatus": previous,
		"newStatus":      target,
	}
	if req.Notes != nil && *req.Notes != "" {
		details["notes"] = *req.Notes
	}
	entry, err := models.NewAuditLogEntry(invoice.ID, req.ActorID, models.AuditActionStatusChanged, details)
	if err != nil {
		return nil, err
	}

	err = s.repos.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repos.Invoices.UpdateStatus(ctx, invoice.ID, previous, target); err != nil {
			return err
		}
		return s.repos.AuditLogs.Append(ctx, entry)
	})
	if err != nil {
		if repositories.IsConcurrency(err) {
			return nil, &ConcurrentModificationError{Entity: "invoice", ID: invoice.ID}
		}
		return nil, fmt.Errorf("failed to update invoice status: %w", err)
	}

	invoice.Status = target
	invoice.UpdatedAt = s.now().UTC()

	s.logger.WithFields(logrus.Fields{
		"invoice_id": invoice.ID,
		"from":       previous,
		"to":         target,
	}).Info("Invoice status changed")

	return invoice, nil
}

// GetInvoice returns an invoice with its lines, template, upload mapping and recent audit trail
func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID, tenantID string) (*InvoiceDetail, error) {
	invoice, err := s.getOwnedInvoice(ctx, invoiceID, tenantID)
	if err != nil {
		return nil, err
	}

	items, err := s.repos.InvoiceItems.ListByInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice items: %w", err)
	}

	var template *models.InvoiceTemplate
	if invoice.TemplateID != "" {
		template, err = s.repos.Templates.GetByID(ctx, invoice.TemplateID)
		if err != nil && !repositories.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get invoice template: %w", err)
		}
	}

	mapping, err := s.repos.Mappings.GetByInvoiceID(ctx, invoice.ID)
	if err != nil && !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to get marketplace mapping: %w", err)
	}

	audit, err := s.repos.AuditLogs.ListByInvoice(ctx, invoice.ID, recentAuditEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return &InvoiceDetail{
		Invoice:        invoice,
		Items:          items,
		Template:       template,
		Mapping:        mapping,
		RecentAuditLog: audit,
	}, nil
}

// ListInvoices returns one page of a tenant's invoices
func (s *invoiceService) ListInvoices(ctx context.Context, filter models.InvoiceFilter) (*InvoiceList, error) {
	if strings.TrimSpace(filter.TenantID) == "" {
		return nil, &RequestValidationError{Err: errors.New("tenant ID is required")}
	}
	if filter.Status != nil {
		status, ok := models.ParseInvoiceStatus(string(*filter.Status))
		if !ok {
			return nil, &InvalidStatusError{Status: string(*filter.Status)}
		}
		filter.Status = &status
	}
	filter.Normalize()

	invoices, total, err := s.repos.Invoices.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	if invoices == nil {
		invoices = []*models.Invoice{}
	}

	return &InvoiceList{
		Invoices:   invoices,
		Pagination: models.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// getOwnedInvoice loads an invoice, hiding invoices of other tenants
func (s *invoiceService) getOwnedInvoice(ctx context.Context, invoiceID, tenantID string) (*models.Invoice, error) {
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
	return invoice, nil
}
