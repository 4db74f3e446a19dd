package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/middleware"
	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/services"
)

// VatHandler handles VAT rule administration and resolution previews
type VatHandler struct {
	vatService      services.VatService
	settingsService services.SettingsService
	logger          *logrus.Logger
}

// NewVatHandler creates a new VAT handler
func NewVatHandler(vatService services.VatService, settingsService services.SettingsService, logger *logrus.Logger) *VatHandler {
	return &VatHandler{
		vatService:      vatService,
		settingsService: settingsService,
		logger:          logger,
	}
}

// ValidateVATNumberRequest is the body of a VAT number check
type ValidateVATNumberRequest struct {
	VATNumber string `json:"vatNumber"`
}

// VatResolutionResponse previews the rule an invoice line would get
type VatResolutionResponse struct {
	Rule          *models.VatRule             `json:"rule"`
	ReverseCharge bool                        `json:"reverseCharge"`
	Resolution    services.VatResolution      `json:"resolution"`
	VATNumber     *models.VATNumberValidation `json:"vatNumber,omitempty"`
}

// @Summary List VAT rules
// @Tags vat
// @Produce json
// @Param country query string false "Filter by destination country"
// @Param activeOnly query bool false "Only active rules"
// @Success 200 {array} models.VatRule
// @Security BearerAuth
// @Router /vat-rules [get]
func (h *VatHandler) ListRules(c *gin.Context) {
	filter := models.VatRuleFilter{CountryCode: strings.ToUpper(c.Query("country"))}
	if activeOnly := c.Query("activeOnly"); activeOnly != "" {
		filter.ActiveOnly, _ = strconv.ParseBool(activeOnly)
	}

	rules, err := h.vatService.ListRules(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, rules)
}

// @Summary Create a VAT rule
// @Description Creating a default rule replaces the country's current default
// @Tags vat
// @Accept json
// @Produce json
// @Param rule body services.CreateVatRuleRequest true "VAT rule"
// @Success 201 {object} models.VatRule
// @Failure 400 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /vat-rules [post]
func (h *VatHandler) CreateRule(c *gin.Context) {
	var req services.CreateVatRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rule, err := h.vatService.CreateRule(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// @Summary Update a VAT rule
// @Tags vat
// @Accept json
// @Produce json
// @Param id path string true "VAT rule ID"
// @Param rule body services.UpdateVatRuleRequest true "Fields to change"
// @Success 200 {object} models.VatRule
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /vat-rules/{id} [put]
func (h *VatHandler) UpdateRule(c *gin.Context) {
	var req services.UpdateVatRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rule, err := h.vatService.UpdateRule(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// @Summary Deactivate a VAT rule
// @Description Rules are never deleted; historical invoices keep their snapshot
// @Tags vat
// @Produce json
// @Param id path string true "VAT rule ID"
// @Success 200 {object} models.VatRule
// @Failure 404 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /vat-rules/{id} [delete]
func (h *VatHandler) DeactivateRule(c *gin.Context) {
	rule, err := h.vatService.DeactivateRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// @Summary Preview VAT resolution
// @Description Resolve the rule a line shipped to country would get. The seller country defaults to the tenant's settings.
// @Tags vat
// @Produce json
// @Param country query string true "Destination country"
// @Param vatNumber query string false "Customer VAT number"
// @Param b2b query bool false "Business customer"
// @Param sellerCountry query string false "Seller country"
// @Param tenantId query string false "Tenant whose seller country is used"
// @Success 200 {object} VatResolutionResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /vat/resolve [get]
func (h *VatHandler) ResolvePreview(c *gin.Context) {
	resolution := services.VatResolution{
		DestinationCountry: strings.ToUpper(c.Query("country")),
		CustomerVATNumber:  c.Query("vatNumber"),
		SellerCountry:      strings.ToUpper(c.Query("sellerCountry")),
	}
	resolution.IsB2B, _ = strconv.ParseBool(c.Query("b2b"))

	if resolution.SellerCountry == "" {
		resolution.SellerCountry = h.tenantSellerCountry(c)
	}

	rule, err := h.vatService.Resolve(c.Request.Context(), resolution)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response := VatResolutionResponse{
		Rule:          rule,
		ReverseCharge: rule.IsReverseCharge(),
		Resolution:    resolution,
	}
	if resolution.CustomerVATNumber != "" {
		validation := h.vatService.ValidateVATNumber(resolution.CustomerVATNumber)
		response.VATNumber = &validation
	}

	c.JSON(http.StatusOK, response)
}

// @Summary Validate a VAT number
// @Description Format check of an EU VAT identification number
// @Tags vat
// @Accept json
// @Produce json
// @Param request body ValidateVATNumberRequest true "VAT number"
// @Success 200 {object} models.VATNumberValidation
// @Failure 400 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /vat/validate-number [post]
func (h *VatHandler) ValidateVATNumber(c *gin.Context) {
	var req ValidateVATNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, h.vatService.ValidateVATNumber(req.VATNumber))
}

// tenantSellerCountry returns the configured seller country of the request's tenant, if any
func (h *VatHandler) tenantSellerCountry(c *gin.Context) string {
	tenantID, err := middleware.ResolveTenant(c, c.Query("tenantId"))
	if err != nil {
		return ""
	}

	settings, err := h.settingsService.GetSettings(c.Request.Context(), tenantID)
	if err != nil {
		return ""
	}
	return settings.Seller.CountryCode
}
