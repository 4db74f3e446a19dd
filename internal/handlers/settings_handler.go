package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/middleware"
	"bol-invoice-api/internal/services"
)

// SettingsHandler handles tenant invoice settings, templates and marketplace credentials
type SettingsHandler struct {
	settingsService services.SettingsService
	logger          *logrus.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService services.SettingsService, logger *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		logger:          logger,
	}
}

// @Summary Get invoice settings
// @Tags settings
// @Produce json
// @Param tenantId query string false "Tenant ID when the token carries none"
// @Success 200 {object} models.InvoiceSettings
// @Failure 400 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /invoice-settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	tenantID, err := middleware.ResolveTenant(c, c.Query("tenantId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	settings, err := h.settingsService.GetSettings(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// @Summary Update invoice settings
// @Description Store seller identity and invoicing defaults. A default template is created when none exists.
// @Tags settings
// @Accept json
// @Produce json
// @Param settings body services.UpdateSettingsRequest true "Invoice settings"
// @Success 200 {object} models.InvoiceSettings
// @Failure 400 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /invoice-settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req services.UpdateSettingsRequest
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

	settings, err := h.settingsService.UpdateSettings(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// @Summary Invoice onboarding status
// @Description Report whether the tenant can generate invoices and what is missing
// @Tags settings
// @Produce json
// @Param tenantId query string false "Tenant ID when the token carries none"
// @Success 200 {object} services.SettingsStatus
// @Security BearerAuth
// @Router /invoice-settings/status [get]
func (h *SettingsHandler) GetStatus(c *gin.Context) {
	tenantID, err := middleware.ResolveTenant(c, c.Query("tenantId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status, err := h.settingsService.GetStatus(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// @Summary List invoice templates
// @Tags settings
// @Produce json
// @Param tenantId query string false "Tenant ID when the token carries none"
// @Success 200 {array} models.InvoiceTemplate
// @Security BearerAuth
// @Router /invoice-templates [get]
func (h *SettingsHandler) ListTemplates(c *gin.Context) {
	tenantID, err := middleware.ResolveTenant(c, c.Query("tenantId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	templates, err := h.settingsService.ListTemplates(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, templates)
}

// @Summary Create an invoice template
// @Tags settings
// @Accept json
// @Produce json
// @Param template body services.CreateTemplateRequest true "Template"
// @Success 201 {object} models.InvoiceTemplate
// @Failure 400 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /invoice-templates [post]
func (h *SettingsHandler) CreateTemplate(c *gin.Context) {
	var req services.CreateTemplateRequest
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

	template, err := h.settingsService.CreateTemplate(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, template)
}

// @Summary Store marketplace credentials
// @Description Store the tenant's retailer API client credentials. The secret is never returned.
// @Tags settings
// @Accept json
// @Produce json
// @Param credentials body services.UpdateCredentialsRequest true "Client credentials"
// @Success 200 {object} models.MarketplaceCredentials
// @Failure 400 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /marketplace-credentials [put]
func (h *SettingsHandler) UpdateCredentials(c *gin.Context) {
	var req services.UpdateCredentialsRequest
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

	credentials, err := h.settingsService.UpdateCredentials(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, credentials)
}
