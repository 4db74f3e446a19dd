package database_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/database"
	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories/sqlite"
)

func TestLoadVatRuleSeeds(t *testing.T) {
	rules, err := database.LoadVatRuleSeeds()
	if err != nil {
		t.Fatalf("LoadVatRuleSeeds() error = %v", err)
	}

	defaults := map[string]int{}
	reverseCharge := map[string]bool{}
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			t.Errorf("seed rule %s %q is invalid: %v", rule.CountryCode, rule.Name, err)
		}
		if rule.IsDefault {
			defaults[rule.CountryCode]++
		}
		if rule.IsReverseCharge() {
			if !rule.RatePercent.IsZero() {
				t.Errorf("reverse charge rule for %s has rate %s", rule.CountryCode, rule.RatePercent)
			}
			reverseCharge[rule.CountryCode] = true
		}
	}

	for country, count := range defaults {
		if count != 1 {
			t.Errorf("country %q has %d default rules", country, count)
		}
	}
	if defaults[""] != 1 {
		t.Error("missing global default rule")
	}

	for _, country := range models.EUCountryCodes() {
		if defaults[country] != 1 {
			t.Errorf("member state %s has no default rule", country)
		}
		if !reverseCharge[country] {
			t.Errorf("member state %s has no reverse charge rule", country)
		}
	}
}

func TestSeedVatRules(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	config := database.DefaultConnectionConfig()
	config.DatabasePath = filepath.Join(t.TempDir(), "seed.db")
	config.Logger = logger

	manager := database.NewManager(config)
	ctx := context.Background()
	if err := manager.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer manager.Close()

	repos := sqlite.NewRepositoryContainer(manager.GetDB(), logger)

	inserted, err := database.SeedVatRules(ctx, repos, logger)
	if err != nil {
		t.Fatalf("SeedVatRules() error = %v", err)
	}
	if inserted == 0 {
		t.Fatal("expected seeded rules")
	}

	again, err := database.SeedVatRules(ctx, repos, logger)
	if err != nil {
		t.Fatalf("second SeedVatRules() error = %v", err)
	}
	if again != 0 {
		t.Errorf("second seed inserted %d rules, want 0", again)
	}

	count, err := repos.VatRules.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != int64(inserted) {
		t.Errorf("Count() = %d, want %d", count, inserted)
	}

	rules, err := repos.VatRules.ListActiveByCountry(ctx, "DE")
	if err != nil {
		t.Fatalf("ListActiveByCountry() error = %v", err)
	}
	if len(rules) == 0 || !rules[0].IsDefault || rules[0].RatePercent.String() != "19" {
		t.Errorf("expected the German standard rate first, got %+v", rules)
	}
}
