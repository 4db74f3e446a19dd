package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bol-invoice-api/internal/models"
)

func TestSettingsService_Status(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.settings.GetStatus(ctx, testTenant)
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.Equal(t, []string{"settings", "defaultTemplate"}, status.Missing)

	_, err = f.settings.GetSettings(ctx, testTenant)
	var notConfigured *SettingsNotConfiguredError
	assert.True(t, errors.As(err, &notConfigured))

	f.configureTenant(t, testTenant)

	status, err = f.settings.GetStatus(ctx, testTenant)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Empty(t, status.Missing)

	settings, err := f.settings.GetSettings(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultNumberPrefix, settings.NumberPrefix)
	assert.Equal(t, models.DefaultPaymentTermsDays, settings.PaymentTermsDays)
	assert.Equal(t, models.DefaultCurrency, settings.Currency)
}

func TestSettingsService_UpdateSettingsKeepsDefaultTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.configureTenant(t, testTenant)
	f.configureTenant(t, testTenant)

	templates, err := f.settings.ListTemplates(ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.True(t, templates[0].IsDefault)
	assert.Equal(t, "Default", templates[0].Name)

	updated, err := f.settings.UpdateSettings(ctx, &UpdateSettingsRequest{
		TenantID: testTenant,
		Seller: models.SellerIdentity{
			Name:        "Webshop BV",
			Address:     "Keizersgracht 1",
			City:        "Amsterdam",
			PostalCode:  "1015AA",
			CountryCode: "nl",
			VATNumber:   "NL123456789B01",
		},
		NumberPrefix:        "WS",
		PaymentTermsDays:    30,
		DefaultLanguage:     "en",
		OnboardingCompleted: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "NL", updated.Seller.CountryCode)
	assert.Equal(t, "WS", updated.NumberPrefix)

	f.addOrder(t, testTenant, "order-1", "NL", false, nil, line("10.00", 1))
	invoice := f.generate(t, "order-1").Invoice
	assert.Equal(t, "WS-000001", invoice.InvoiceNumber)
	assert.Equal(t, "en", invoice.Language)
	assert.Equal(t, invoice.InvoiceDate.Add(30*24*time.Hour), invoice.DueDate)
}

func TestSettingsService_UpdateSettingsValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.settings.UpdateSettings(context.Background(), &UpdateSettingsRequest{
		TenantID: testTenant,
		Seller:   models.SellerIdentity{Name: "Webshop BV"},
	})

	var validationErr *RequestValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestSettingsService_CreateTemplate(t *testing.T) {
	f := newFixture(t)
	f.configureTenant(t, testTenant)
	ctx := context.Background()

	plain, err := f.settings.CreateTemplate(ctx, &CreateTemplateRequest{
		TenantID: testTenant,
		Name:     "Plain",
		ShowEAN:  lo.ToPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, plain.IsDefault)
	assert.False(t, plain.ShowEAN)
	assert.Equal(t, "#1F4E79", plain.AccentColor)

	branded, err := f.settings.CreateTemplate(ctx, &CreateTemplateRequest{
		TenantID:    testTenant,
		Name:        "Branded",
		IsDefault:   true,
		AccentColor: "#FF6600",
		FooterText:  "Bedankt voor uw bestelling",
	})
	require.NoError(t, err)

	templates, err := f.settings.ListTemplates(ctx, testTenant)
	require.NoError(t, err)
	assert.Len(t, templates, 3)
	defaults := lo.Filter(templates, func(tpl *models.InvoiceTemplate, _ int) bool { return tpl.IsDefault })
	require.Len(t, defaults, 1)
	assert.Equal(t, branded.ID, defaults[0].ID)

	_, err = f.settings.CreateTemplate(ctx, &CreateTemplateRequest{TenantID: testTenant, Name: "Bad", AccentColor: "orange"})
	var validationErr *RequestValidationError
	assert.True(t, errors.As(err, &validationErr))

	f.addOrder(t, testTenant, "order-1", "NL", false, nil, line("10.00", 1))
	generated, err := f.invoices.GenerateInvoice(ctx, &GenerateInvoiceRequest{
		TenantID:   testTenant,
		OrderID:    "order-1",
		TemplateID: lo.ToPtr(plain.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, plain.ID, generated.Invoice.TemplateID)

	assert.Equal(t, branded.ID, f.generate(t, "order-1").Invoice.TemplateID)
}

func TestSettingsService_UpdateCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creds, err := f.settings.UpdateCredentials(ctx, &UpdateCredentialsRequest{
		TenantID:     testTenant,
		ClientID:     " client-id ",
		ClientSecret: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "client-id", creds.ClientID)

	stored, err := f.repos.Credentials.Get(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, "client-id", stored.ClientID)
	assert.Equal(t, "secret", stored.ClientSecret)

	_, err = f.settings.UpdateCredentials(ctx, &UpdateCredentialsRequest{TenantID: testTenant})
	var validationErr *RequestValidationError
	assert.True(t, errors.As(err, &validationErr))
}
