package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrorCategory groups domain errors by how callers should react to them
type ErrorCategory string

const (
	CategoryNotFound     ErrorCategory = "not_found"
	CategoryPrecondition ErrorCategory = "precondition"
	CategoryValidation   ErrorCategory = "validation"
	CategoryConflict     ErrorCategory = "conflict"
)

// DomainError is implemented by every error the invoicing services return on purpose
type DomainError interface {
	error
	Category() ErrorCategory
}

// OrderNotFoundError is returned when the order is absent or owned by another tenant
type OrderNotFoundError struct {
	OrderID  string
	TenantID string
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order %s not found for tenant %s", e.OrderID, e.TenantID)
}

func (e *OrderNotFoundError) Category() ErrorCategory { return CategoryNotFound }

// InvoiceNotFoundError is returned when the invoice is absent or owned by another tenant
type InvoiceNotFoundError struct {
	InvoiceID string
}

func (e *InvoiceNotFoundError) Error() string {
	return fmt.Sprintf("invoice %s not found", e.InvoiceID)
}

func (e *InvoiceNotFoundError) Category() ErrorCategory { return CategoryNotFound }

// TemplateNotFoundError is returned when neither the requested nor a default template exists
type TemplateNotFoundError struct {
	TemplateID string
	TenantID   string
}

func (e *TemplateNotFoundError) Error() string {
	if e.TemplateID == "" {
		return fmt.Sprintf("no default invoice template configured for tenant %s", e.TenantID)
	}
	return fmt.Sprintf("invoice template %s not found", e.TemplateID)
}

func (e *TemplateNotFoundError) Category() ErrorCategory { return CategoryNotFound }

// VatRuleNotFoundError is returned when no rule applies to a country and no global default exists,
// or when a rule looked up by ID does not exist
type VatRuleNotFoundError struct {
	CountryCode string
	RuleID      string
}

func (e *VatRuleNotFoundError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("VAT rule %s not found", e.RuleID)
	}
	return fmt.Sprintf("no VAT rule found for country %q", e.CountryCode)
}

func (e *VatRuleNotFoundError) Category() ErrorCategory { return CategoryNotFound }

// SettingsNotConfiguredError is returned when the tenant has not completed invoice onboarding
type SettingsNotConfiguredError struct {
	TenantID string
	Missing  []string
}

func (e *SettingsNotConfiguredError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("invoice settings not configured for tenant %s", e.TenantID)
	}
	return fmt.Sprintf("invoice settings not configured for tenant %s: missing %s",
		e.TenantID, strings.Join(e.Missing, ", "))
}

func (e *SettingsNotConfiguredError) Category() ErrorCategory { return CategoryPrecondition }

// InvalidStateError is returned when an invoice is in a status that does not allow the operation
type InvalidStateError struct {
	InvoiceID string
	Status    string
	Reason    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invoice %s is %s: %s", e.InvoiceID, e.Status, e.Reason)
}

func (e *InvalidStateError) Category() ErrorCategory { return CategoryPrecondition }

// InvalidStatusError is returned for unknown statuses and illegal transitions
type InvalidStatusError struct {
	From   string
	Status string
}

func (e *InvalidStatusError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("invalid invoice status %q", e.Status)
	}
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.Status)
}

func (e *InvalidStatusError) Category() ErrorCategory { return CategoryPrecondition }

// InvalidLineItemError is returned for non-positive quantities and negative prices
type InvalidLineItemError struct {
	Line   int
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid line item %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("invalid line item: %s", e.Reason)
}

func (e *InvalidLineItemError) Category() ErrorCategory { return CategoryValidation }

// InvalidVatRateError is returned for rates outside 0-100
type InvalidVatRateError struct {
	Rate decimal.Decimal
}

func (e *InvalidVatRateError) Error() string {
	return fmt.Sprintf("VAT rate %s%% is outside 0-100", e.Rate.String())
}

func (e *InvalidVatRateError) Category() ErrorCategory { return CategoryValidation }

// InvoiceNumberConflictError is returned when numbering kept colliding with concurrent inserts
type InvoiceNumberConflictError struct {
	TenantID string
	Prefix   string
	Attempts int
}

func (e *InvoiceNumberConflictError) Error() string {
	return fmt.Sprintf("could not allocate a unique %s invoice number for tenant %s after %d attempts",
		e.Prefix, e.TenantID, e.Attempts)
}

func (e *InvoiceNumberConflictError) Category() ErrorCategory { return CategoryConflict }

// ConcurrentModificationError is returned when a conditional update lost a race
type ConcurrentModificationError struct {
	Entity string
	ID     string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Entity, e.ID)
}

func (e *ConcurrentModificationError) Category() ErrorCategory { return CategoryConflict }

// RequestValidationError wraps struct validation failures of service requests
type RequestValidationError struct {
	Err error
}

func (e *RequestValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *RequestValidationError) Unwrap() error { return e.Err }

func (e *RequestValidationError) Category() ErrorCategory { return CategoryValidation }
