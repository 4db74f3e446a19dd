package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/middleware"
	"bol-invoice-api/internal/repositories"
	"bol-invoice-api/internal/services"
)

// statusFor maps a service error to its HTTP status and response title
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, middleware.ErrTenantRequired):
		return http.StatusBadRequest, "Tenant required"
	case errors.Is(err, middleware.ErrTenantMismatch):
		return http.StatusForbidden, "Tenant mismatch"
	}

	var settingsErr *services.SettingsNotConfiguredError
	var stateErr *services.InvalidStateError
	if errors.As(err, &settingsErr) {
		return http.StatusBadRequest, "Invoice settings not configured"
	}
	if errors.As(err, &stateErr) {
		return http.StatusConflict, "Invalid invoice state"
	}

	var domainErr services.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Category() {
		case services.CategoryNotFound:
			return http.StatusNotFound, "Not found"
		case services.CategoryValidation:
			return http.StatusBadRequest, "Validation failed"
		case services.CategoryConflict:
			return http.StatusConflict, "Conflict"
		case services.CategoryPrecondition:
			return http.StatusBadRequest, "Precondition failed"
		}
	}

	switch {
	case repositories.IsNotFound(err):
		return http.StatusNotFound, "Not found"
	case repositories.IsDuplicate(err), repositories.IsConcurrency(err):
		return http.StatusConflict, "Conflict"
	case repositories.IsValidation(err):
		return http.StatusBadRequest, "Validation failed"
	}

	return http.StatusInternalServerError, "Internal server error"
}

// respondError writes the error response for err, hiding internal error details
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status, title := statusFor(err)
	response := middleware.NewErrorResponse(c, title, err.Error())

	var settingsErr *services.SettingsNotConfiguredError
	if errors.As(err, &settingsErr) && len(settingsErr.Missing) > 0 {
		response.Details = gin.H{"missing": settingsErr.Missing}
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		response.ValidationErrors = middleware.FormatValidationErrors(validationErrs)
	}

	fields := logrus.Fields{
		"request_id": c.GetString(middleware.RequestIDKey),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"status":     status,
	}
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithFields(fields).Error("Request failed")
		response.Message = "An internal error occurred"
	} else {
		logger.WithError(err).WithFields(fields).Debug("Request rejected")
	}

	c.JSON(status, response)
}

// badRequest rejects a malformed request body or parameter
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, middleware.NewErrorResponse(c, "Invalid request", message))
}
