package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReverseChargeRuleName is the canonical name of intra-EU B2B reverse-charge rules
const ReverseChargeRuleName = "Reverse Charge"

// VatRule represents a VAT rate applicable to a destination country
type VatRule struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name" validate:"required,max=100"`
	RatePercent decimal.Decimal `json:"ratePercent" db:"rate_percent"`
	CountryCode string          `json:"countryCode" db:"country_code" validate:"omitempty,len=2"`
	IsDefault   bool            `json:"isDefault" db:"is_default"`
	IsActive    bool            `json:"isActive" db:"is_active"`
	Description *string         `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// NewVatRule creates an active VAT rule with generated ID and timestamps
func NewVatRule(name, countryCode string, ratePercent decimal.Decimal, isDefault bool) *VatRule {
	now := time.Now().UTC()
	return &VatRule{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(name),
		RatePercent: ratePercent,
		CountryCode: strings.ToUpper(strings.TrimSpace(countryCode)),
		IsDefault:   isDefault,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsReverseCharge reports whether the rule is named as a reverse-charge rule
func (r *VatRule) IsReverseCharge() bool {
	return IsReverseChargeName(r.Name)
}

// IsReverseChargeName matches "Reverse Charge", "reverse-charge" and "REVERSE_CHARGE"
func IsReverseChargeName(name string) bool {
	normalized := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(name))
	return strings.EqualFold(strings.Join(strings.Fields(normalized), " "), ReverseChargeRuleName)
}

// Validate validates the VAT rule data
func (r *VatRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("VAT rule ID is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("VAT rule name is required")
	}
	if len(r.Name) > 100 {
		return fmt.Errorf("VAT rule name cannot exceed 100 characters")
	}
	if r.CountryCode != "" && !IsValidCountryCode(r.CountryCode) {
		return fmt.Errorf("invalid country code: %s", r.CountryCode)
	}
	if r.RatePercent.IsNegative() || r.RatePercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("VAT rate must be between 0 and 100, got %s", r.RatePercent.String())
	}
	if r.IsReverseCharge() && !r.RatePercent.IsZero() {
		return fmt.Errorf("reverse-charge rule must carry a 0%% rate")
	}
	return nil
}
