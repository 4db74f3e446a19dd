package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"bol-invoice-api/internal/repositories"
)

// DefaultNumberRetries bounds how often a clashing invoice number is re-read and retried
const DefaultNumberRetries = 5

// numberGenerator implements the InvoiceNumberGenerator interface
type numberGenerator struct {
	invoiceRepo repositories.InvoiceRepository
}

// NewInvoiceNumberGenerator creates a generator reading the tenant's latest stored number.
// It holds no counter of its own, so nothing is consumed unless the invoice is persisted.
func NewInvoiceNumberGenerator(invoiceRepo repositories.InvoiceRepository) InvoiceNumberGenerator {
	return &numberGenerator{invoiceRepo: invoiceRepo}
}

// Next returns "{prefix}-{sequence:06d}" following the tenant's highest stored number
func (g *numberGenerator) Next(ctx context.Context, tenantID, prefix string) (string, error) {
	latest, err := g.invoiceRepo.LatestNumber(ctx, tenantID, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to read latest invoice number: %w", err)
	}

	sequence := 1
	if latest != "" {
		parsed, err := strconv.Atoi(strings.TrimPrefix(latest, prefix+"-"))
		if err != nil {
			return "", fmt.Errorf("failed to parse invoice number %q: %w", latest, err)
		}
		sequence = parsed + 1
	}

	return g.Format(prefix, sequence), nil
}

// Format renders a sequence with at least six digits
func (g *numberGenerator) Format(prefix string, sequence int) string {
	return fmt.Sprintf("%s-%06d", prefix, sequence)
}
