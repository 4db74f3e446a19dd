package repositories

import (
	"context"

	"bol-invoice-api/internal/models"
)

// InvoiceRepository defines persistence operations for invoice headers
type InvoiceRepository interface {
	// Create inserts a new invoice; a clash on (tenant_id, invoice_number) returns ErrDuplicateEntry
	Create(ctx context.Context, invoice *models.Invoice) error

	// GetByID retrieves an invoice by its ID
	GetByID(ctx context.Context, id string) (*models.Invoice, error)

	// List retrieves a page of invoices for a tenant together with the total match count
	List(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, int64, error)

	// UpdateStatus moves an invoice from one status to another.
	// It returns ErrConcurrency when the stored status no longer equals from.
	UpdateStatus(ctx context.Context, id string, from, to models.InvoiceStatus) error

	// UpdateUploadStatus records the latest marketplace upload status on the invoice
	UpdateUploadStatus(ctx context.Context, id string, status models.UploadStatus) error

	// LatestNumber returns the highest invoice number of the form "{prefix}-{digits}" for a
	// tenant, or an empty string when none exists
	LatestNumber(ctx context.Context, tenantID, prefix string) (string, error)
}

// InvoiceItemRepository defines persistence operations for invoice line items
type InvoiceItemRepository interface {
	// CreateBatch inserts all line items of an invoice
	CreateBatch(ctx context.Context, items []*models.InvoiceLineItem) error

	// ListByInvoice retrieves the line items of an invoice ordered by line number
	ListByInvoice(ctx context.Context, invoiceID string) ([]*models.InvoiceLineItem, error)
}

// VatRuleRepository defines persistence operations for VAT rules
type VatRuleRepository interface {
	Create(ctx context.Context, rule *models.VatRule) error
	Update(ctx context.Context, rule *models.VatRule) error
	GetByID(ctx context.Context, id string) (*models.VatRule, error)
	List(ctx context.Context, filter models.VatRuleFilter) ([]*models.VatRule, error)

	// ListActiveByCountry retrieves active rules for a country, defaults first
	ListActiveByCountry(ctx context.Context, countryCode string) ([]*models.VatRule, error)

	// GetGlobalDefault retrieves the fallback default rule, preferring rules without a country
	GetGlobalDefault(ctx context.Context) (*models.VatRule, error)

	// Count returns the number of stored rules
	Count(ctx context.Context) (int64, error)
}

// AuditLogRepository is the append-only store of invoice audit entries
type AuditLogRepository interface {
	// Append inserts a new entry; entries are never updated or deleted
	Append(ctx context.Context, entry *models.InvoiceAuditLogEntry) error

	// ListByInvoice retrieves the newest entries of an invoice first; limit <= 0 returns all
	ListByInvoice(ctx context.Context, invoiceID string, limit int) ([]*models.InvoiceAuditLogEntry, error)
}

// MarketplaceMappingRepository defines persistence operations for marketplace upload mappings
type MarketplaceMappingRepository interface {
	Create(ctx context.Context, mapping *models.MarketplaceInvoiceMapping) error
	GetByInvoiceID(ctx context.Context, invoiceID string) (*models.MarketplaceInvoiceMapping, error)
	Update(ctx context.Context, mapping *models.MarketplaceInvoiceMapping) error
}

// OrderRepository stores marketplace orders synced for a tenant
type OrderRepository interface {
	// GetByID retrieves an order owned by the tenant
	GetByID(ctx context.Context, orderID, tenantID string) (*models.Order, error)

	// Upsert inserts or replaces an order snapshot
	Upsert(ctx context.Context, order *models.Order) error
}

// InvoiceSettingsRepository stores per-tenant invoice settings
type InvoiceSettingsRepository interface {
	Get(ctx context.Context, tenantID string) (*models.InvoiceSettings, error)
	Upsert(ctx context.Context, settings *models.InvoiceSettings) error
}

// TemplateRepository stores invoice document templates
type TemplateRepository interface {
	Create(ctx context.Context, template *models.InvoiceTemplate) error
	GetByID(ctx context.Context, id string) (*models.InvoiceTemplate, error)

	// GetDefault retrieves the tenant's default template
	GetDefault(ctx context.Context, tenantID string) (*models.InvoiceTemplate, error)

	ListByTenant(ctx context.Context, tenantID string) ([]*models.InvoiceTemplate, error)

	// ClearDefault unsets the default flag on all templates of a tenant
	ClearDefault(ctx context.Context, tenantID string) error
}

// CredentialsRepository stores marketplace API credentials per tenant
type CredentialsRepository interface {
	Get(ctx context.Context, tenantID string) (*models.MarketplaceCredentials, error)
	Upsert(ctx context.Context, credentials *models.MarketplaceCredentials) error
}

// RepositoryContainer groups every repository and the transaction manager they share
type RepositoryContainer struct {
	Invoices      InvoiceRepository
	InvoiceItems  InvoiceItemRepository
	VatRules      VatRuleRepository
	AuditLogs     AuditLogRepository
	Mappings      MarketplaceMappingRepository
	Orders        OrderRepository
	Settings      InvoiceSettingsRepository
	Templates     TemplateRepository
	Credentials   CredentialsRepository
	Transactions  TransactionManager
	HealthChecker func(ctx context.Context) error
}

// Health checks the underlying database connection
func (c *RepositoryContainer) Health(ctx context.Context) error {
	if c.HealthChecker == nil {
		return nil
	}
	return c.HealthChecker(ctx)
}
