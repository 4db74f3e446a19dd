package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusGenerated InvoiceStatus = "generated"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// statusRank orders the forward path of the lifecycle. Cancelled sits outside it.
var statusRank = map[InvoiceStatus]int{
	InvoiceStatusDraft:     0,
	InvoiceStatusGenerated: 1,
	InvoiceStatusSent:      2,
	InvoiceStatusPaid:      3,
}

// ParseInvoiceStatus normalizes a raw status string and reports whether it is known
func ParseInvoiceStatus(raw string) (InvoiceStatus, bool) {
	status := InvoiceStatus(strings.ToLower(strings.TrimSpace(raw)))
	if status == InvoiceStatusCancelled {
		return status, true
	}
	_, ok := statusRank[status]
	return status, ok
}

// IsTerminal returns true for statuses that allow no further transitions
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// CanTransitionStatus reports whether moving an invoice from one status to another is legal.
// Transitions only move forward along draft, generated, sent, paid; intermediate states may be
// skipped. Cancelled is reachable from every non-terminal status.
func CanTransitionStatus(from, to InvoiceStatus) bool {
	if from.IsTerminal() || from == to {
		return false
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	if to == InvoiceStatusCancelled {
		return true
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// UploadStatus represents the marketplace upload state of an invoice
type UploadStatus string

const (
	UploadStatusPending  UploadStatus = "pending"
	UploadStatusUploaded UploadStatus = "uploaded"
	UploadStatusFailed   UploadStatus = "failed"
)

// CustomerDetails is the billing party snapshot stored on an invoice
type CustomerDetails struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Email       string  `json:"email,omitempty" validate:"omitempty,email"`
	Company     string  `json:"company,omitempty"`
	Address     string  `json:"address" validate:"max=500"`
	City        string  `json:"city" validate:"max=255"`
	PostalCode  string  `json:"postalCode" validate:"max=32"`
	CountryCode string  `json:"countryCode" validate:"required,len=2"`
	VATNumber   *string `json:"vatNumber,omitempty"`
}

// SellerIdentity is the tenant's registered business data printed on invoices
type SellerIdentity struct {
	Name          string `json:"name" validate:"required,max=255"`
	Address       string `json:"address" validate:"required,max=500"`
	City          string `json:"city" validate:"required,max=255"`
	PostalCode    string `json:"postalCode" validate:"required,max=32"`
	CountryCode   string `json:"countryCode" validate:"required,len=2"`
	VATNumber     string `json:"vatNumber" validate:"required"`
	ChamberNumber string `json:"chamberOfCommerceNumber,omitempty"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         string `json:"phone,omitempty"`
	IBAN          string `json:"iban,omitempty"`
}

// Invoice represents a VAT invoice issued for a marketplace order
type Invoice struct {
	ID                      string          `json:"id" db:"id"`
	InvoiceNumber           string          `json:"invoiceNumber" db:"invoice_number"`
	TenantID                string          `json:"tenantId" db:"tenant_id"`
	OrderID                 string          `json:"orderId" db:"order_id"`
	MarketplaceOrderID      *string         `json:"marketplaceOrderId,omitempty" db:"marketplace_order_id"`
	ShipmentID              *string         `json:"shipmentId,omitempty" db:"shipment_id"`
	TemplateID              string          `json:"templateId" db:"template_id"`
	Customer                CustomerDetails `json:"customer" db:"customer_json"`
	Seller                  SellerIdentity  `json:"seller" db:"seller_json"`
	InvoiceDate             time.Time       `json:"invoiceDate" db:"invoice_date"`
	DueDate                 time.Time       `json:"dueDate" db:"due_date"`
	Currency                string          `json:"currency" db:"currency"`
	SubtotalExclVat         decimal.Decimal `json:"subtotalExclVat" db:"subtotal_excl_vat"`
	VatTotal                decimal.Decimal `json:"vatTotal" db:"vat_total"`
	TotalAmount             decimal.Decimal `json:"totalAmount" db:"total_amount"`
	Status                  InvoiceStatus   `json:"status" db:"status"`
	Language                string          `json:"language" db:"language"`
	MarketplaceUploadStatus UploadStatus    `json:"marketplaceUploadStatus" db:"marketplace_upload_status"`
	Notes                   *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt               time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt               time.Time       `json:"updatedAt" db:"updated_at"`
}

// Validate validates the invoice header
func (i *Invoice) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("invoice ID is required")
	}
	if strings.TrimSpace(i.TenantID) == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if strings.TrimSpace(i.OrderID) == "" {
		return fmt.Errorf("order ID is required")
	}
	if strings.TrimSpace(i.InvoiceNumber) == "" {
		return fmt.Errorf("invoice number is required")
	}
	if _, ok := ParseInvoiceStatus(string(i.Status)); !ok {
		return fmt.Errorf("invalid invoice status: %s", i.Status)
	}
	if !IsValidCurrency(i.Currency) {
		return fmt.Errorf("invalid currency: %s", i.Currency)
	}
	if i.DueDate.Before(i.InvoiceDate) {
		return fmt.Errorf("due date cannot be before invoice date")
	}
	if !i.TotalAmount.Equal(i.SubtotalExclVat.Add(i.VatTotal).Round(2)) {
		return fmt.Errorf("total amount %s does not match subtotal %s plus VAT %s",
			i.TotalAmount.StringFixed(2), i.SubtotalExclVat.StringFixed(2), i.VatTotal.StringFixed(2))
	}
	return nil
}

// GetNotes returns the notes or empty string if nil
func (i *Invoice) GetNotes() string {
	if i.Notes == nil {
		return ""
	}
	return *i.Notes
}

// IsReverseCharge returns true when every line of the invoice was taxed under reverse charge
func IsReverseCharge(items []*InvoiceLineItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !item.ReverseCharge {
			return false
		}
	}
	return true
}
