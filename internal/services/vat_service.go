package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"
)

// vatService implements the VatService interface
type vatService struct {
	vatRuleRepo  repositories.VatRuleRepository
	transactions repositories.TransactionManager
	validator    *validator.Validate
	logger       *logrus.Logger
}

// NewVatService creates a new VAT service instance
func NewVatService(
	vatRuleRepo repositories.VatRuleRepository,
	transactions repositories.TransactionManager,
	logger *logrus.Logger,
) VatService {
	if logger == nil {
		logger = logrus.New()
	}
	return &vatService{
		vatRuleRepo:  vatRuleRepo,
		transactions: transactions,
		validator:    validator.New(),
		logger:       logger,
	}
}

// Resolve picks the VAT rule for one invoice line.
//
// Resolution order: intra-EU B2B reverse charge, the destination's default rule, any other
// active rule of the destination, then the global default.
func (s *vatService) Resolve(ctx context.Context, req VatResolution) (*models.VatRule, error) {
	destination := strings.ToUpper(strings.TrimSpace(req.DestinationCountry))
	seller := strings.ToUpper(strings.TrimSpace(req.SellerCountry))

	var rules []*models.VatRule
	if destination != "" {
		var err error
		rules, err = s.vatRuleRepo.ListActiveByCountry(ctx, destination)
		if err != nil {
			return nil, fmt.Errorf("failed to list VAT rules for %s: %w", destination, err)
		}
	}

	if s.qualifiesForReverseCharge(req, destination, seller) {
		if rule, ok := lo.Find(rules, (*models.VatRule).IsReverseCharge); ok {
			return rule, nil
		}
		s.logger.WithFields(logrus.Fields{
			"country": destination,
		}).Warn("No reverse-charge rule configured, falling back to standard VAT")
	}

	if rule, ok := lo.Find(rules, func(r *models.VatRule) bool { return r.IsDefault }); ok {
		return rule, nil
	}

	// A reverse-charge rule only applies to qualifying B2B supplies
	if rule, ok := lo.Find(rules, func(r *models.VatRule) bool { return !r.IsReverseCharge() }); ok {
		return rule, nil
	}

	rule, err := s.vatRuleRepo.GetGlobalDefault(ctx)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &VatRuleNotFoundError{CountryCode: destination}
		}
		return nil, fmt.Errorf("failed to get global default VAT rule: %w", err)
	}

	return rule, nil
}

func (s *vatService) qualifiesForReverseCharge(req VatResolution, destination, seller string) bool {
	return req.IsB2B &&
		strings.TrimSpace(req.CustomerVATNumber) != "" &&
		models.IsEUCountry(destination) &&
		destination != seller
}

// ValidateVATNumber checks the format of an EU VAT number
func (s *vatService) ValidateVATNumber(raw string) models.VATNumberValidation {
	return models.ValidateVATNumber(raw)
}

// ListRules lists VAT rules
func (s *vatService) ListRules(ctx context.Context, filter models.VatRuleFilter) ([]*models.VatRule, error) {
	rules, err := s.vatRuleRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list VAT rules: %w", err)
	}
	return rules, nil
}

// CreateRule creates a VAT rule. A new default replaces the country's previous default.
func (s *vatService) CreateRule(ctx context.Context, req *CreateVatRuleRequest) (*models.VatRule, error) {
	if req == nil {
		return nil, fmt.Errorf("create VAT rule request cannot be nil")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, &RequestValidationError{Err: err}
	}
	if req.RatePercent.IsNegative() || req.RatePercent.GreaterThan(hundred) {
		return nil, &InvalidVatRateError{Rate: req.RatePercent}
	}

	rule := models.NewVatRule(req.Name, req.CountryCode, req.RatePercent, req.IsDefault)
	rule.Description = req.Description
	if err := rule.Validate(); err != nil {
		return nil, &RequestValidationError{Err: err}
	}

	err := s.transactions.WithTransaction(ctx, func(ctx context.Context) error {
		if rule.IsDefault {
			if err := s.clearDefault(ctx, rule.CountryCode, rule.ID); err != nil {
				return err
			}
		}
		return s.vatRuleRepo.Create(ctx, rule)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create VAT rule: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"rule_id": rule.ID,
		"country": rule.CountryCode,
		"rate":    rule.RatePercent.String(),
	}).Info("VAT rule created")

	return rule, nil
}

// UpdateRule applies a partial update to a VAT rule
func (s *vatService) UpdateRule(ctx context.Context, id string, req *UpdateVatRuleRequest) (*models.VatRule, error) {
	if req == nil {
		return nil, fmt.Errorf("update VAT rule request cannot be nil")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, &RequestValidationError{Err: err}
	}

	var rule *models.VatRule
	err := s.transactions.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		rule, err = s.getRule(ctx, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			rule.Name = strings.TrimSpace(*req.Name)
		}
		if req.RatePercent != nil {
			if req.RatePercent.IsNegative() || req.RatePercent.GreaterThan(hundred) {
				return &InvalidVatRateError{Rate: *req.RatePercent}
			}
			rule.RatePercent = *req.RatePercent
		}
		if req.IsDefault != nil {
			rule.IsDefault = *req.IsDefault
		}
		if req.IsActive != nil {
			rule.IsActive = *req.IsActive
		}
		if req.Description != nil {
			rule.Description = req.Description
		}
		if err := rule.Validate(); err != nil {
			return &RequestValidationError{Err: err}
		}

		if rule.IsDefault && rule.IsActive {
			if err := s.clearDefault(ctx, rule.CountryCode, rule.ID); err != nil {
				return err
			}
		}
		return s.vatRuleRepo.Update(ctx, rule)
	})
	if err != nil {
		return nil, s.wrapRuleError("update", id, err)
	}

	return rule, nil
}

// DeactivateRule soft-deletes a VAT rule; rules are never removed
func (s *vatService) DeactivateRule(ctx context.Context, id string) (*models.VatRule, error) {
	rule, err := s.getRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rule.IsActive {
		return rule, nil
	}

	rule.IsActive = false
	if err := s.vatRuleRepo.Update(ctx, rule); err != nil {
		return nil, s.wrapRuleError("deactivate", id, err)
	}

	s.logger.WithField("rule_id", rule.ID).Info("VAT rule deactivated")
	return rule, nil
}

func (s *vatService) getRule(ctx context.Context, id string) (*models.VatRule, error) {
	rule, err := s.vatRuleRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &VatRuleNotFoundError{RuleID: id}
		}
		return nil, fmt.Errorf("failed to get VAT rule: %w", err)
	}
	return rule, nil
}

// clearDefault unsets the active default of a country other than keepID
func (s *vatService) clearDefault(ctx context.Context, countryCode, keepID string) error {
	rules, err := s.vatRuleRepo.ListActiveByCountry(ctx, countryCode)
	if err != nil {
		return fmt.Errorf("failed to list VAT rules: %w", err)
	}
	for _, existing := range rules {
		if !existing.IsDefault || existing.ID == keepID {
			continue
		}
		existing.IsDefault = false
		if err := s.vatRuleRepo.Update(ctx, existing); err != nil {
			return fmt.Errorf("failed to clear default VAT rule %s: %w", existing.ID, err)
		}
	}
	return nil
}

func (s *vatService) wrapRuleError(op, id string, err error) error {
	var domainErr DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if repositories.IsDuplicate(err) {
		return &ConcurrentModificationError{Entity: "vat_rule", ID: id}
	}
	return fmt.Errorf("failed to %s VAT rule: %w", op, err)
}
