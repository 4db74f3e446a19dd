package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default invoice settings applied when a tenant leaves them blank
const (
	DefaultNumberPrefix     = "INV"
	DefaultPaymentTermsDays = 14
	DefaultLanguage         = "nl"
	DefaultCurrency         = "EUR"
)

var numberPrefixPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_/]{0,19}$`)

// InvoiceSettings holds a tenant's invoicing configuration captured during onboarding
type InvoiceSettings struct {
	TenantID            string         `json:"tenantId" db:"tenant_id"`
	Seller              SellerIdentity `json:"seller" db:"seller_json"`
	NumberPrefix        string         `json:"numberPrefix" db:"number_prefix"`
	PaymentTermsDays    int            `json:"paymentTermsDays" db:"payment_terms_days"`
	DefaultLanguage     string         `json:"defaultLanguage" db:"default_language"`
	Currency            string         `json:"currency" db:"currency"`
	OnboardingCompleted bool           `json:"onboardingCompleted" db:"onboarding_completed"`
	UpdatedAt           time.Time      `json:"updatedAt" db:"updated_at"`
}

// MissingFields lists what still blocks invoice generation for the tenant
func (s *InvoiceSettings) MissingFields() []string {
	var missing []string
	if !s.OnboardingCompleted {
		missing = append(missing, "onboardingCompleted")
	}
	if strings.TrimSpace(s.Seller.Name) == "" {
		missing = append(missing, "seller.name")
	}
	if strings.TrimSpace(s.Seller.Address) == "" {
		missing = append(missing, "seller.address")
	}
	if !IsValidCountryCode(s.Seller.CountryCode) {
		missing = append(missing, "seller.countryCode")
	}
	if strings.TrimSpace(s.Seller.VATNumber) == "" {
		missing = append(missing, "seller.vatNumber")
	}
	if !numberPrefixPattern.MatchString(s.NumberPrefix) {
		missing = append(missing, "numberPrefix")
	}
	return missing
}

// IsConfigured reports whether the tenant completed invoice onboarding
func (s *InvoiceSettings) IsConfigured() bool {
	return len(s.MissingFields()) == 0
}

// ApplyDefaults fills optional fields left empty
func (s *InvoiceSettings) ApplyDefaults() {
	if s.NumberPrefix == "" {
		s.NumberPrefix = DefaultNumberPrefix
	}
	if s.PaymentTermsDays <= 0 {
		s.PaymentTermsDays = DefaultPaymentTermsDays
	}
	if !IsSupportedLanguage(s.DefaultLanguage) {
		s.DefaultLanguage = DefaultLanguage
	}
	if s.Currency == "" {
		s.Currency = DefaultCurrency
	}
	s.Seller.CountryCode = strings.ToUpper(s.Seller.CountryCode)
}

// InvoiceTemplate controls the layout of rendered invoice documents
type InvoiceTemplate struct {
	ID          string    `json:"id" db:"id"`
	TenantID    string    `json:"tenantId" db:"tenant_id"`
	Name        string    `json:"name" db:"name" validate:"required,max=100"`
	IsDefault   bool      `json:"isDefault" db:"is_default"`
	AccentColor string    `json:"accentColor" db:"accent_color" validate:"omitempty,hexcolor"`
	HeaderText  string    `json:"headerText,omitempty" db:"header_text"`
	FooterText  string    `json:"footerText,omitempty" db:"footer_text"`
	ShowEAN     bool      `json:"showEan" db:"show_ean"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// NewInvoiceTemplate creates a template with generated ID and timestamps
func NewInvoiceTemplate(tenantID, name string, isDefault bool) *InvoiceTemplate {
	now := time.Now().UTC()
	return &InvoiceTemplate{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		Name:        strings.TrimSpace(name),
		IsDefault:   isDefault,
		AccentColor: "#1F4E79",
		ShowEAN:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate validates the template data
func (t *InvoiceTemplate) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template ID is required")
	}
	if strings.TrimSpace(t.TenantID) == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template name is required")
	}
	if t.AccentColor != "" && !IsValidHexColor(t.AccentColor) {
		return fmt.Errorf("invalid accent color: %s", t.AccentColor)
	}
	return nil
}

// MarketplaceCredentials are the OAuth client credentials a tenant registered with the marketplace
type MarketplaceCredentials struct {
	TenantID     string    `json:"tenantId" db:"tenant_id"`
	ClientID     string    `json:"clientId" db:"client_id"`
	ClientSecret string    `json:"-" db:"client_secret"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Validate validates the credential set
func (c *MarketplaceCredentials) Validate() error {
	if strings.TrimSpace(c.TenantID) == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("client ID is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return fmt.Errorf("client secret is required")
	}
	return nil
}
