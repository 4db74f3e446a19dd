package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded against an invoice
const (
	AuditActionInvoiceGenerated        = "invoice_generated"
	AuditActionStatusChanged           = "status_changed"
	AuditActionMarketplaceUploaded     = "marketplace_upload_succeeded"
	AuditActionMarketplaceUploadFailed = "marketplace_upload_failed"
	AuditActionPDFRendered             = "pdf_rendered"
)

// SystemActorID is recorded when no authenticated user triggered the action
const SystemActorID = "system"

// InvoiceAuditLogEntry is an append-only record of something that happened to an invoice
type InvoiceAuditLogEntry struct {
	ID          string          `json:"id" db:"id"`
	InvoiceID   string          `json:"invoiceId" db:"invoice_id"`
	ActorID     string          `json:"actorId" db:"actor_id"`
	Action      string          `json:"action" db:"action"`
	DetailsJSON json.RawMessage `json:"details,omitempty" db:"details_json"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// NewAuditLogEntry creates an audit entry, serialising details at this boundary
func NewAuditLogEntry(invoiceID, actorID, action string, details map[string]interface{}) (*InvoiceAuditLogEntry, error) {
	if actorID == "" {
		actorID = SystemActorID
	}

	var raw json.RawMessage
	if len(details) > 0 {
		encoded, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("failed to encode audit details: %w", err)
		}
		raw = encoded
	}

	return &InvoiceAuditLogEntry{
		ID:          uuid.New().String(),
		InvoiceID:   invoiceID,
		ActorID:     actorID,
		Action:      action,
		DetailsJSON: raw,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Validate validates the audit entry
func (e *InvoiceAuditLogEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("audit entry ID is required")
	}
	if e.InvoiceID == "" {
		return fmt.Errorf("invoice ID is required")
	}
	if e.Action == "" {
		return fmt.Errorf("audit action is required")
	}
	if len(e.DetailsJSON) > 0 && !json.Valid(e.DetailsJSON) {
		return fmt.Errorf("audit details must be valid JSON")
	}
	return nil
}
