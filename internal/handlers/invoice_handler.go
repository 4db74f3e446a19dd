package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/middleware"
	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/services"
)

// InvoiceHandler handles invoice-related HTTP requests
type InvoiceHandler struct {
	invoiceService     services.InvoiceService
	documentService    services.DocumentService
	marketplaceService services.MarketplaceService
	logger             *logrus.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService services.InvoiceService, documentService services.DocumentService,
	marketplaceService services.MarketplaceService, logger *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService:     invoiceService,
		documentService:    documentService,
		marketplaceService: marketplaceService,
		logger:             logger,
	}
}

// @Summary Generate an invoice
// @Description Generate a VAT invoice for a marketplace order. The tenant comes from the token or the request body.
// @Tags invoices
// @Accept json
// @Produce json
// @Param request body services.GenerateInvoiceRequest true "Invoice generation request"
// @Success 201 {object} services.GeneratedInvoice
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /invoices [post]
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	var req services.GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	tenantID, err := middleware.ResolveTenant(c, req.TenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	req.TenantID = tenantID
	req.ActorID = c.GetString(middleware.UserIDKey)

	generated, err := h.invoiceService.GenerateInvoice(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, generated)
}

// @Summary Get an invoice
// @Description Get an invoice with its line items, template, marketplace mapping and recent audit trail
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Param tenantId query string false "Tenant ID when the token carries none"
// @Success 200 {object} services.InvoiceDetail
// @Failure 404 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	tenantID, err := middleware.ResolveTenant(c, c.Query("tenantId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	detail, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// @Summary List invoices
// @Description List a tenant's invoices, newest first
// @Tags invoices
// @Produce json
// @Param tenantId query string false "Tenant ID when the token carries none"
// @Param status query string false "Filter by status" Enums(draft, generated, sent, paid, cancelled)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} services.InvoiceList
// @Failure 400 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	tenantID, err := middleware.ResolveTenant(c, c.Query("tenantId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filter := models.InvoiceFilter{TenantID: tenantID}

	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseInvoiceStatus(raw)
		if !ok {
			badRequest(c, fmt.Sprintf("unknown invoice status %q", raw))
			return
		}
		filter.Status = &status
	}

	if page := c.Query("page"); page != "" {
		if val, err := strconv.Atoi(page); err == nil {
			filter.Page = val
		}
	}

	if limit := c.Query("limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			filter.Limit = val
		}
	}

	list, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// @Summary Update invoice status
// @Description Move an invoice forward through draft, generated, sent, paid, or cancel it
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body services.UpdateStatusRequest true "Status update"
// @Success 200 {object} models.Invoice
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /invoices/{id}/status [put]
func (h *InvoiceHandler) UpdateInvoiceStatus(c *gin.Context) {
	var req services.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	tenantID, err := middleware.ResolveTenant(c, req.TenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	req.TenantID = tenantID
	req.InvoiceID = c.Param("id")
	req.ActorID = c.GetString(middleware.UserIDKey)

	invoice, err := h.invoiceService.UpdateInvoiceStatus(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}

// @Summary Upload an invoice to the marketplace
// @Description Submit the invoice PDF to the marketplace. Remote failures are reported in the result with status 200.
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Param tenantId query string false "Tenant ID when the token carries none"
// @Success 200 {object} services.UploadResult
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /invoices/{id}/marketplace-upload [post]
func (h *InvoiceHandler) UploadToMarketplace(c *gin.Context) {
	tenantID, err := middleware.ResolveTenant(c, c.Query("tenantId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.marketplaceService.SubmitInvoice(c.Request.Context(), tenantID, c.Param("id"), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Download invoice PDF
// @Description Render or fetch the archived PDF of an invoice
// @Tags invoices
// @Produce application/pdf
// @Param id path string true "Invoice ID"
// @Param tenantId query string false "Tenant ID when the token carries none"
// @Success 200 {file} file
// @Failure 404 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /invoices/{id}/pdf [get]
func (h *InvoiceHandler) GetInvoicePDF(c *gin.Context) {
	tenantID, err := middleware.ResolveTenant(c, c.Query("tenantId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	document, err := h.documentService.GetInvoicePDF(c.Request.Context(), c.Param("id"), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", document.FileName))
	c.Data(http.StatusOK, "application/pdf", document.Content)
}
