package models

import (
	"time"
)

// Pagination limits for list endpoints
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// InvoiceFilter represents the filters accepted when listing invoices
type InvoiceFilter struct {
	TenantID string         `json:"tenantId"`
	Status   *InvoiceStatus `json:"status,omitempty"`
	Page     int            `json:"page"`
	Limit    int            `json:"limit"`
}

// Normalize clamps page and limit into the accepted range
func (f *InvoiceFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
}

// Offset returns the row offset for the current page
func (f *InvoiceFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination describes a page of results
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination builds pagination metadata for a result set
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// VatRuleFilter represents the filters accepted when listing VAT rules
type VatRuleFilter struct {
	CountryCode string `json:"countryCode,omitempty"`
	ActiveOnly  bool   `json:"activeOnly"`
}

// HealthCheck represents system health status
type HealthCheck struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}
