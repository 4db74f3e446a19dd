package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"
)

const defaultTemplateName = "Default"

// settingsService implements the SettingsService interface
type settingsService struct {
	repos     *repositories.RepositoryContainer
	validator *validator.Validate
	logger    *logrus.Logger
}

// NewSettingsService creates a new settings service instance
func NewSettingsService(repos *repositories.RepositoryContainer, logger *logrus.Logger) SettingsService {
	if logger == nil {
		logger = logrus.New()
	}
	return &settingsService{
		repos:     repos,
		validator: validator.New(),
		logger:    logger,
	}
}

// GetSettings returns the tenant's invoice settings
func (s *settingsService) GetSettings(ctx context.Context, tenantID string) (*models.InvoiceSettings, error) {
	settings, err := s.repos.Settings.Get(ctx, tenantID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &SettingsNotConfiguredError{TenantID: tenantID}
		}
		return nil, fmt.Errorf("failed to get invoice settings: %w", err)
	}
	settings.ApplyDefaults()
	return settings, nil
}

// UpdateSettings stores the tenant's settings and makes sure a default template exists
func (s *settingsService) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*models.InvoiceSettings, error) {
	if req == nil {
		return nil, fmt.Errorf("update settings request cannot be nil")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, &RequestValidationError{Err: err}
	}

	settings := &models.InvoiceSettings{
		TenantID:            req.TenantID,
		Seller:              req.Seller,
		NumberPrefix:        strings.TrimSpace(req.NumberPrefix),
		PaymentTermsDays:    req.PaymentTermsDays,
		DefaultLanguage:     strings.ToLower(req.DefaultLanguage),
		Currency:            req.Currency,
		OnboardingCompleted: req.OnboardingCompleted,
		UpdatedAt:           time.Now().UTC(),
	}
	settings.ApplyDefaults()

	err := s.repos.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repos.Settings.Upsert(ctx, settings); err != nil {
			return err
		}

		_, err := s.repos.Templates.GetDefault(ctx, req.TenantID)
		if err == nil || !repositories.IsNotFound(err) {
			return err
		}
		return s.repos.Templates.Create(ctx, models.NewInvoiceTemplate(req.TenantID, defaultTemplateName, true))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice settings: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id":  settings.TenantID,
		"configured": settings.IsConfigured(),
	}).Info("Invoice settings updated")

	return settings, nil
}

// GetStatus reports whether the tenant can generate invoices
func (s *settingsService) GetStatus(ctx context.Context, tenantID string) (*SettingsStatus, error) {
	status := &SettingsStatus{TenantID: tenantID, Missing: []string{}}

	settings, err := s.repos.Settings.Get(ctx, tenantID)
	if err != nil {
		if !repositories.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get invoice settings: %w", err)
		}
		status.Missing = append(status.Missing, "settings")
	} else {
		settings.ApplyDefaults()
		status.Missing = append(status.Missing, settings.MissingFields()...)
	}

	if _, err := s.repos.Templates.GetDefault(ctx, tenantID); err != nil {
		if !repositories.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get default invoice template: %w", err)
		}
		status.Missing = append(status.Missing, "defaultTemplate")
	}

	status.Configured = len(status.Missing) == 0
	return status, nil
}

// ListTemplates lists the tenant's templates
func (s *settingsService) ListTemplates(ctx context.Context, tenantID string) ([]*models.InvoiceTemplate, error) {
	templates, err := s.repos.Templates.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice templates: %w", err)
	}
	if templates == nil {
		templates = []*models.InvoiceTemplate{}
	}
	return templates, nil
}

// CreateTemplate creates a template; a new default replaces the previous one
func (s *settingsService) CreateTemplate(ctx context.Context, req *CreateTemplateRequest) (*models.InvoiceTemplate, error) {
	if req == nil {
		return nil, fmt.Errorf("create template request cannot be nil")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, &RequestValidationError{Err: err}
	}

	template := models.NewInvoiceTemplate(req.TenantID, req.Name, req.IsDefault)
	if req.AccentColor != "" {
		template.AccentColor = req.AccentColor
	}
	template.HeaderText = req.HeaderText
	template.FooterText = req.FooterText
	if req.ShowEAN != nil {
		template.ShowEAN = *req.ShowEAN
	}
	if err := template.Validate(); err != nil {
		return nil, &RequestValidationError{Err: err}
	}

	err := s.repos.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
		if template.IsDefault {
			if err := s.repos.Templates.ClearDefault(ctx, template.TenantID); err != nil {
				return err
			}
		}
		return s.repos.Templates.Create(ctx, template)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice template: %w", err)
	}

	return template, nil
}

// UpdateCredentials stores the tenant's marketplace API credentials
func (s *settingsService) UpdateCredentials(ctx context.Context, req *UpdateCredentialsRequest) (*models.MarketplaceCredentials, error) {
	if req == nil {
		return nil, fmt.Errorf("update credentials request cannot be nil")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, &RequestValidationError{Err: err}
	}

	creds := &models.MarketplaceCredentials{
		TenantID:     req.TenantID,
		ClientID:     strings.TrimSpace(req.ClientID),
		ClientSecret: req.ClientSecret,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.repos.Credentials.Upsert(ctx, creds); err != nil {
		return nil, fmt.Errorf("failed to store marketplace credentials: %w", err)
	}

	s.logger.WithField("tenant_id", creds.TenantID).Info("Marketplace credentials updated")
	return creds, nil
}
