package services

import (
	"context"

	"bol-invoice-api/internal/adapters/marketplace"
	"bol-invoice-api/internal/models"

	"github.com/shopspring/decimal"
)

// VatService defines the interface for VAT rule resolution and administration
type VatService interface {
	// Resolution
	Resolve(ctx context.Context, req VatResolution) (*models.VatRule, error)
	ValidateVATNumber(raw string) models.VATNumberValidation

	// Rule administration
	ListRules(ctx context.Context, filter models.VatRuleFilter) ([]*models.VatRule, error)
	CreateRule(ctx context.Context, req *CreateVatRuleRequest) (*models.VatRule, error)
	UpdateRule(ctx context.Context, id string, req *UpdateVatRuleRequest) (*models.VatRule, error)
	DeactivateRule(ctx context.Context, id string) (*models.VatRule, error)
}

// InvoiceNumberGenerator allocates sequential invoice numbers per tenant
type InvoiceNumberGenerator interface {
	// Next reads the tenant's highest number for prefix and returns its successor
	Next(ctx context.Context, tenantID, prefix string) (string, error)

	// Format renders an explicit sequence
	Format(prefix string, sequence int) string
}

// InvoiceService defines the interface for the invoice lifecycle
type InvoiceService interface {
	GenerateInvoice(ctx context.Context, req *GenerateInvoiceRequest) (*GeneratedInvoice, error)
	UpdateInvoiceStatus(ctx context.Context, req *UpdateStatusRequest) (*models.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID, tenantID string) (*InvoiceDetail, error)
	ListInvoices(ctx context.Context, filter models.InvoiceFilter) (*InvoiceList, error)
}

// DocumentService renders and archives invoice PDFs
type DocumentService interface {
	// GetInvoicePDF returns the archived document, rendering and archiving it on first access
	GetInvoicePDF(ctx context.Context, invoiceID, tenantID string) (*InvoiceDocument, error)

	// RenderInvoice renders a persisted invoice without touching the archive
	RenderInvoice(ctx context.Context, invoice *models.Invoice, items []*models.InvoiceLineItem) ([]byte, error)
}

// MarketplaceService coordinates invoice uploads to the marketplace
type MarketplaceService interface {
	SubmitInvoice(ctx context.Context, tenantID, invoiceID, actorID string) (*UploadResult, error)
}

// SettingsService manages the tenant-scoped sources invoice generation depends on
type SettingsService interface {
	GetSettings(ctx context.Context, tenantID string) (*models.InvoiceSettings, error)
	UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*models.InvoiceSettings, error)
	GetStatus(ctx context.Context, tenantID string) (*SettingsStatus, error)

	ListTemplates(ctx context.Context, tenantID string) ([]*models.InvoiceTemplate, error)
	CreateTemplate(ctx context.Context, req *CreateTemplateRequest) (*models.InvoiceTemplate, error)

	UpdateCredentials(ctx context.Context, req *UpdateCredentialsRequest) (*models.MarketplaceCredentials, error)
}

// OrderSource fetches the marketplace order an invoice is generated from.
// It returns nil, nil when the tenant has no such order.
type OrderSource interface {
	GetOrder(ctx context.Context, orderID, tenantID string) (*models.Order, error)
}

// MarketplaceClient is the subset of the retailer API the services call
type MarketplaceClient interface {
	GetOrder(ctx context.Context, creds marketplace.Credentials, orderID string) (*models.Order, error)
	UploadInvoice(ctx context.Context, creds marketplace.Credentials, upload marketplace.InvoiceUpload) (*marketplace.ProcessStatus, error)
	WaitForProcess(ctx context.Context, creds marketplace.Credentials, processStatusID string) (*marketplace.ProcessStatus, error)
}

// DocumentRenderer turns a persisted invoice into document bytes
type DocumentRenderer interface {
	Render(invoice *models.Invoice, items []*models.InvoiceLineItem, template *models.InvoiceTemplate) ([]byte, error)
}

// Request and response types for service operations

// VatResolution describes the line a VAT rule is resolved for
type VatResolution struct {
	DestinationCountry string `json:"destinationCountry"`
	CustomerVATNumber  string `json:"customerVatNumber,omitempty"`
	IsB2B              bool   `json:"isB2B"`
	SellerCountry      string `json:"sellerCountry"`
}

// VAT rule types
type CreateVatRuleRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	CountryCode string          `json:"countryCode" validate:"omitempty,len=2,alpha"`
	RatePercent decimal.Decimal `json:"ratePercent"`
	IsDefault   bool            `json:"isDefault"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=500"`
}

type UpdateVatRuleRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=100"`
	RatePercent *decimal.Decimal `json:"ratePercent,omitempty"`
	IsDefault   *bool            `json:"isDefault,omitempty"`
	IsActive    *bool            `json:"isActive,omitempty"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=500"`
}

// Invoice types
type GenerateInvoiceRequest struct {
	TenantID          string  `json:"tenantId" validate:"required"`
	OrderID           string  `json:"orderId" validate:"required"`
	ShipmentID        *string `json:"shipmentId,omitempty"`
	TemplateID        *string `json:"templateId,omitempty"`
	Language          string  `json:"language" validate:"omitempty,oneof=nl en de fr"`
	CustomerVATNumber *string `json:"customerVatNumber,omitempty"`
	Notes             *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Sequence          *int    `json:"sequence,omitempty" validate:"omitempty,min=1"`
	ActorID           string  `json:"-"`
}

type UpdateStatusRequest struct {
	InvoiceID string  `json:"-" validate:"required"`
	TenantID  string  `json:"tenantId" validate:"required"`
	Status    string  `json:"status" validate:"required"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	ActorID   string  `json:"-"`
}

type GeneratedInvoice struct {
	Invoice  *models.Invoice                `json:"invoice"`
	Items    []*models.InvoiceLineItem      `json:"items"`
	AuditLog []*models.InvoiceAuditLogEntry `json:"auditLog"`
}

type InvoiceDetail struct {
	Invoice        *models.Invoice                   `json:"invoice"`
	Items          []*models.InvoiceLineItem         `json:"items"`
	Template       *models.InvoiceTemplate           `json:"template,omitempty"`
	Mapping        *models.MarketplaceInvoiceMapping `json:"marketplaceMapping,omitempty"`
	RecentAuditLog []*models.InvoiceAuditLogEntry    `json:"recentAuditLog"`
}

type InvoiceList struct {
	Invoices   []*models.Invoice `json:"invoices"`
	Pagination models.Pagination `json:"pagination"`
}

type InvoiceDocument struct {
	FileName string `json:"fileName"`
	Content  []byte `json:"-"`
	Cached   bool   `json:"cached"`
}

// UploadResult is the structured outcome of a marketplace submission.
// Remote failures are reported here rather than as errors.
type UploadResult struct {
	InvoiceID            string              `json:"invoiceId"`
	MappingStatus        models.UploadStatus `json:"mappingStatus"`
	MarketplaceOrderID   string              `json:"marketplaceOrderId"`
	MarketplaceInvoiceID *string             `json:"marketplaceInvoiceId,omitempty"`
	ProcessStatusID      *string             `json:"processStatusId,omitempty"`
	AttemptCount         int                 `json:"attemptCount"`
	Error                string              `json:"error,omitempty"`
	AlreadyUploaded      bool                `json:"alreadyUploaded,omitempty"`
}

// Settings types
type UpdateSettingsRequest struct {
	TenantID            string                `json:"tenantId" validate:"required"`
	Seller              models.SellerIdentity `json:"seller"`
	NumberPrefix        string                `json:"numberPrefix" validate:"omitempty,max=20"`
	PaymentTermsDays    int                   `json:"paymentTermsDays" validate:"omitempty,min=0,max=365"`
	DefaultLanguage     string                `json:"defaultLanguage" validate:"omitempty,oneof=nl en de fr"`
	Currency            string                `json:"currency" validate:"omitempty,len=3,uppercase"`
	OnboardingCompleted bool                  `json:"onboardingCompleted"`
}

type SettingsStatus struct {
	TenantID   string   `json:"tenantId"`
	Configured bool     `json:"configured"`
	Missing    []string `json:"missing"`
}

type CreateTemplateRequest struct {
	TenantID    string `json:"tenantId" validate:"required"`
	Name        string `json:"name" validate:"required,max=100"`
	IsDefault   bool   `json:"isDefault"`
	AccentColor string `json:"accentColor" validate:"omitempty,hexcolor"`
	HeaderText  string `json:"headerText" validate:"max=500"`
	FooterText  string `json:"footerText" validate:"max=500"`
	ShowEAN     *bool  `json:"showEan,omitempty"`
}

type UpdateCredentialsRequest struct {
	TenantID     string `json:"tenantId" validate:"required"`
	ClientID     string `json:"clientId" validate:"required,max=255"`
	ClientSecret string `json:"clientSecret" validate:"required,max=1024"`
}
