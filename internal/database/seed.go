package database

import (
	"context"
	"embed"
	"fmt"

	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed seeds/vat_rules.yaml
var seedFiles embed.FS

type vatRuleSeed struct {
	Country     string `yaml:"country"`
	Name        string `yaml:"name"`
	Rate        string `yaml:"rate"`
	Default     bool   `yaml:"default"`
	Description string `yaml:"description"`
}

type vatRuleSeedFile struct {
	Rules []vatRuleSeed `yaml:"rules"`
}

// LoadVatRuleSeeds parses the embedded EU VAT rule seed file
func LoadVatRuleSeeds() ([]*models.VatRule, error) {
	raw, err := seedFiles.ReadFile("seeds/vat_rules.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read VAT rule seeds: %w", err)
	}

	var file vatRuleSeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse VAT rule seeds: %w", err)
	}

	rules := make([]*models.VatRule, 0, len(file.Rules))
	for i, seed := range file.Rules {
		rate, err := decimal.NewFromString(seed.Rate)
		if err != nil {
			return nil, fmt.Errorf("invalid rate %q in seed %d: %w", seed.Rate, i, err)
		}

		rule := models.NewVatRule(seed.Name, seed.Country, rate, seed.Default)
		if seed.Description != "" {
			description := seed.Description
			rule.Description = &description
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("invalid seed %d (%s %s): %w", i, seed.Country, seed.Name, err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

// SeedVatRules loads the EU VAT rules into an empty vat_rules table.
// It returns the number of inserted rules; a populated table is left untouched.
func SeedVatRules(ctx context.Context, repos *repositories.RepositoryContainer, logger *logrus.Logger) (int, error) {
	count, err := repos.VatRules.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count VAT rules: %w", err)
	}
	if count > 0 {
		logger.WithField("existing_rules", count).Debug("VAT rules already present, skipping seed")
		return 0, nil
	}

	rules, err := LoadVatRuleSeeds()
	if err != nil {
		return 0, err
	}

	err = repos.Transactions.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, rule := range rules {
			if err := repos.VatRules.Create(txCtx, rule); err != nil {
				return fmt.Errorf("failed to seed VAT rule %s %s: %w", rule.CountryCode, rule.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.WithField("rules", len(rules)).Info("Seeded EU VAT rules")
	return len(rules), nil
}
