package services

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bol-invoice-api/internal/models"
)

func TestVatService_Resolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		req      VatResolution
		wantRate string
		wantRC   bool
	}{
		{
			name:     "domestic consumer",
			req:      VatResolution{DestinationCountry: "NL", SellerCountry: "NL"},
			wantRate: "21",
		},
		{
			name:     "cross-border consumer pays destination rate",
			req:      VatResolution{DestinationCountry: "fr", SellerCountry: "NL"},
			wantRate: "20",
		},
		{
			name:     "intra-community business supply is reverse charged",
			req:      VatResolution{DestinationCountry: "DE", SellerCountry: "NL", IsB2B: true, CustomerVATNumber: "DE123456789"},
			wantRate: "0",
			wantRC:   true,
		},
		{
			name:     "domestic business supply is not reverse charged",
			req:      VatResolution{DestinationCountry: "NL", SellerCountry: "NL", IsB2B: true, CustomerVATNumber: "NL123456789B01"},
			wantRate: "21",
		},
		{
			name:     "business without VAT number pays destination rate",
			req:      VatResolution{DestinationCountry: "DE", SellerCountry: "NL", IsB2B: true},
			wantRate: "19",
		},
		{
			name:     "non-EU destination falls back to global default",
			req:      VatResolution{DestinationCountry: "US", SellerCountry: "NL", IsB2B: true, CustomerVATNumber: "DE123456789"},
			wantRate: "21",
		},
		{
			name:     "missing destination falls back to global default",
			req:      VatResolution{SellerCountry: "NL"},
			wantRate: "21",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := f.vat.Resolve(ctx, tt.req)
			require.NoError(t, err)
			assert.True(t, dec(tt.wantRate).Equal(rule.RatePercent), "rate %s", rule.RatePercent)
			assert.Equal(t, tt.wantRC, rule.IsReverseCharge())
		})
	}
}

func TestVatService_ResolveWithoutReverseChargeRule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rules, err := f.vat.ListRules(ctx, models.VatRuleFilter{CountryCode: "DE", ActiveOnly: true})
	require.NoError(t, err)
	rc, ok := lo.Find(rules, (*models.VatRule).IsReverseCharge)
	require.True(t, ok)

	_, err = f.vat.DeactivateRule(ctx, rc.ID)
	require.NoError(t, err)

	rule, err := f.vat.Resolve(ctx, VatResolution{DestinationCountry: "DE", SellerCountry: "NL", IsB2B: true, CustomerVATNumber: "DE123456789"})
	require.NoError(t, err)
	assert.Equal(t, "19", rule.RatePercent.String())
	assert.False(t, rule.IsReverseCharge())
}

func TestVatService_ResolveWithoutRules(t *testing.T) {
	repos, logger := openTestRepos(t)
	service := NewVatService(repos.VatRules, repos.Transactions, logger)

	_, err := service.Resolve(context.Background(), VatResolution{DestinationCountry: "NL"})

	var notFound *VatRuleNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "NL", notFound.CountryCode)
}

func TestVatService_CreateRuleReplacesDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.vat.CreateRule(ctx, &CreateVatRuleRequest{
		Name:        "Standard 2025",
		CountryCode: "NL",
		RatePercent: dec("22"),
		IsDefault:   true,
	})
	require.NoError(t, err)

	rules, err := f.vat.ListRules(ctx, models.VatRuleFilter{CountryCode: "NL", ActiveOnly: true})
	require.NoError(t, err)
	defaults := lo.Filter(rules, func(r *models.VatRule, _ int) bool { return r.IsDefault })
	require.Len(t, defaults, 1)
	assert.Equal(t, created.ID, defaults[0].ID)

	rule, err := f.vat.Resolve(ctx, VatResolution{DestinationCountry: "NL", SellerCountry: "NL"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, rule.ID)
}

func TestVatService_CreateRuleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *CreateVatRuleRequest
		wantErr interface{}
	}{
		{
			name:    "missing name",
			req:     &CreateVatRuleRequest{CountryCode: "NL", RatePercent: dec("21")},
			wantErr: &RequestValidationError{},
		},
		{
			name:    "bad country",
			req:     &CreateVatRuleRequest{Name: "Standard", CountryCode: "NLD", RatePercent: dec("21")},
			wantErr: &RequestValidationError{},
		},
		{
			name:    "rate out of range",
			req:     &CreateVatRuleRequest{Name: "Standard", CountryCode: "NL", RatePercent: dec("120")},
			wantErr: &InvalidVatRateError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.vat.CreateRule(ctx, tt.req)
			require.Error(t, err)
			assert.IsType(t, tt.wantErr, err)
		})
	}
}

func TestVatService_UpdateAndDeactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rules, err := f.vat.ListRules(ctx, models.VatRuleFilter{CountryCode: "FR", ActiveOnly: true})
	require.NoError(t, err)
	reduced, ok := lo.Find(rules, func(r *models.VatRule) bool { return r.Name == "Reduced" })
	require.True(t, ok)

	updated, err := f.vat.UpdateRule(ctx, reduced.ID, &UpdateVatRuleRequest{RatePercent: lo.ToPtr(dec("5.0"))})
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(updated.RatePercent))

	_, err = f.vat.UpdateRule(ctx, reduced.ID, &UpdateVatRuleRequest{RatePercent: lo.ToPtr(dec("-1"))})
	var rateErr *InvalidVatRateError
	assert.True(t, errors.As(err, &rateErr))

	deactivated, err := f.vat.DeactivateRule(ctx, reduced.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	stored, err := f.repos.VatRules.GetByID(ctx, reduced.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	_, err = f.vat.UpdateRule(ctx, "missing-rule", &UpdateVatRuleRequest{Name: lo.ToPtr("x")})
	var notFound *VatRuleNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing-rule", notFound.RuleID)
}

func TestVatService_ValidateVATNumber(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		raw       string
		wantValid bool
		wantNorm  string
	}{
		{raw: "nl 1234 5678 9B01", wantValid: true, wantNorm: "NL123456789B01"},
		{raw: "EL123456789", wantValid: true, wantNorm: "EL123456789"},
		{raw: "US123456789", wantValid: false, wantNorm: "US123456789"},
		{raw: "123456789", wantValid: false, wantNorm: "123456789"},
		{raw: "", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			result := f.vat.ValidateVATNumber(tt.raw)
			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.wantNorm, result.Normalized)
			if !tt.wantValid {
				assert.NotEmpty(t, result.Reason)
			}
		})
	}
}
