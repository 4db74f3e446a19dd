package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MarketplaceInvoiceMapping tracks the upload of one invoice to the marketplace
type MarketplaceInvoiceMapping struct {
	ID                   string       `json:"id" db:"id"`
	InvoiceID            string       `json:"invoiceId" db:"invoice_id"`
	MarketplaceOrderID   string       `json:"marketplaceOrderId" db:"marketplace_order_id"`
	MarketplaceInvoiceID *string      `json:"marketplaceInvoiceId,omitempty" db:"marketplace_invoice_id"`
	ProcessStatusID      *string      `json:"processStatusId,omitempty" db:"process_status_id"`
	UploadStatus         UploadStatus `json:"uploadStatus" db:"upload_status"`
	UploadError          *string      `json:"uploadError,omitempty" db:"upload_error"`
	LastAttemptResponse  *string      `json:"lastAttemptResponse,omitempty" db:"last_attempt_response"`
	AttemptCount         int          `json:"attemptCount" db:"attempt_count"`
	LastAttemptAt        *time.Time   `json:"lastAttemptAt,omitempty" db:"last_attempt_at"`
	CreatedAt            time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time    `json:"updatedAt" db:"updated_at"`
}

// NewMarketplaceInvoiceMapping creates a pending mapping with generated ID and timestamps
func NewMarketplaceInvoiceMapping(invoiceID, marketplaceOrderID string) *MarketplaceInvoiceMapping {
	now := time.Now().UTC()
	return &MarketplaceInvoiceMapping{
		ID:                 uuid.New().String(),
		InvoiceID:          invoiceID,
		MarketplaceOrderID: marketplaceOrderID,
		UploadStatus:       UploadStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Validate validates the mapping data
func (m *MarketplaceInvoiceMapping) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("mapping ID is required")
	}
	if m.InvoiceID == "" {
		return fmt.Errorf("invoice ID is required")
	}
	if m.MarketplaceOrderID == "" {
		return fmt.Errorf("marketplace order ID is required")
	}
	switch m.UploadStatus {
	case UploadStatusPending, UploadStatusUploaded, UploadStatusFailed:
	default:
		return fmt.Errorf("invalid upload status: %s", m.UploadStatus)
	}
	if m.UploadStatus == UploadStatusUploaded && m.MarketplaceInvoiceID == nil {
		return fmt.Errorf("uploaded mapping requires a marketplace invoice ID")
	}
	if m.AttemptCount < 0 {
		return fmt.Errorf("attempt count cannot be negative")
	}
	return nil
}

// GetUploadError returns the last upload error or empty string if nil
func (m *MarketplaceInvoiceMapping) GetUploadError() string {
	if m.UploadError == nil {
		return ""
	}
	return *m.UploadError
}

// IsUploaded returns true if the marketplace accepted the invoice
func (m *MarketplaceInvoiceMapping) IsUploaded() bool {
	return m.UploadStatus == UploadStatusUploaded
}
