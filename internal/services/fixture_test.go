package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"bol-invoice-api/internal/adapters/marketplace"
	"bol-invoice-api/internal/database"
	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"
	"bol-invoice-api/internal/repositories/sqlite"
)

const testTenant = "tenant-1"

// fixture is a migrated and seeded SQLite database with services wired on top
type fixture struct {
	repos    *repositories.RepositoryContainer
	logger   *logrus.Logger
	vat      VatService
	numbers  InvoiceNumberGenerator
	invoices InvoiceService
	settings SettingsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repos, logger := openTestRepos(t)
	_, err := database.SeedVatRules(context.Background(), repos, logger)
	require.NoError(t, err)

	f := &fixture{
		repos:    repos,
		logger:   logger,
		vat:      NewVatService(repos.VatRules, repos.Transactions, logger),
		numbers:  NewInvoiceNumberGenerator(repos.Invoices),
		settings: NewSettingsService(repos, logger),
	}
	f.invoices = f.invoiceService(f.numbers, DefaultNumberRetries)
	return f
}

// openTestRepos returns repositories over an empty migrated database
func openTestRepos(t *testing.T) (*repositories.RepositoryContainer, *logrus.Logger) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	config := database.DefaultConnectionConfig()
	config.DatabasePath = filepath.Join(t.TempDir(), "invoices.db")
	config.Logger = logger

	db, err := database.Open(config)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrationManager(db, logger).RunMigrations())

	return sqlite.NewRepositoryContainer(db, logger), logger
}

func (f *fixture) invoiceService(numbers InvoiceNumberGenerator, retries int) InvoiceService {
	orders := NewOrderSource(f.repos.Orders, f.repos.Credentials, nil, f.logger)
	return NewInvoiceService(f.repos, orders, f.vat, numbers, retries, f.logger)
}

// configureTenant completes onboarding for a Dutch seller
func (f *fixture) configureTenant(t *testing.T, tenantID string) {
	t.Helper()

	_, err := f.settings.UpdateSettings(context.Background(), &UpdateSettingsRequest{
		TenantID: tenantID,
		Seller: models.SellerIdentity{
			Name:        "Webshop BV",
			Address:     "Keizersgracht 1",
			City:        "Amsterdam",
			PostalCode:  "1015AA",
			CountryCode: "NL",
			VATNumber:   "NL123456789B01",
		},
		OnboardingCompleted: true,
	})
	require.NoError(t, err)
}

// addOrder stores an order for the tenant; items are (price, quantity) pairs shipped to country
func (f *fixture) addOrder(t *testing.T, tenantID, orderID, country string, b2b bool, vatNumber *string, lines ...orderLine) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:                  orderID,
		TenantID:            tenantID,
		MarketplaceOrderID:  lo.ToPtr("BOL-" + orderID),
		OrderPlacedAt:       time.Now().UTC(),
		Currency:            "EUR",
		ShippingCountryCode: country,
		IsB2B:               b2b,
		Customer: models.CustomerDetails{
			Name:        "Jan Jansen",
			Address:     "Dorpsstraat 2",
			City:        "Utrecht",
			PostalCode:  "3511AA",
			CountryCode: country,
			VATNumber:   vatNumber,
		},
		SyncedAt: time.Now().UTC(),
	}
	for i, line := range lines {
		order.Items = append(order.Items, models.OrderItem{
			OrderItemID:      orderID + "-" + string(rune('a'+i)),
			EAN:              "8712345678906",
			ProductName:      "Koffiebonen 1kg",
			Quantity:         line.quantity,
			UnitPriceInclVat: decimal.RequireFromString(line.price),
		})
	}

	require.NoError(t, f.repos.Orders.Upsert(context.Background(), order))
	return order
}

func (f *fixture) generate(t *testing.T, orderID string) *GeneratedInvoice {
	t.Helper()

	generated, err := f.invoices.GenerateInvoice(context.Background(), &GenerateInvoiceRequest{
		TenantID: testTenant,
		OrderID:  orderID,
		ActorID:  "user-1",
	})
	require.NoError(t, err)
	return generated
}

type orderLine struct {
	price    string
	quantity int
}

func line(price string, quantity int) orderLine {
	return orderLine{price: price, quantity: quantity}
}

// scriptedNumbers hands out invoice numbers from a fixed list, repeating the last one
type scriptedNumbers struct {
	mu      sync.Mutex
	numbers []string
	calls   int
}

func (s *scriptedNumbers) Next(_ context.Context, _, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.calls
	if idx >= len(s.numbers) {
		idx = len(s.numbers) - 1
	}
	s.calls++
	return s.numbers[idx], nil
}

func (s *scriptedNumbers) Format(prefix string, sequence int) string {
	return NewInvoiceNumberGenerator(nil).Format(prefix, sequence)
}

var errMappingWrite = errors.New("mapping write failed")

// failingMappings rejects every new mapping so the surrounding transaction must roll back
type failingMappings struct {
	repositories.MarketplaceMappingRepository
}

func (failingMappings) Create(context.Context, *models.MarketplaceInvoiceMapping) error {
	return errMappingWrite
}

// stubRenderer produces a recognizable document per invoice
type stubRenderer struct {
	mu    sync.Mutex
	calls int
}

func (r *stubRenderer) Render(invoice *models.Invoice, _ []*models.InvoiceLineItem, _ *models.InvoiceTemplate) ([]byte, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return []byte("%PDF-1.4 " + invoice.InvoiceNumber), nil
}

func (r *stubRenderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeMarketplace records uploads and answers with canned process statuses
type fakeMarketplace struct {
	mu       sync.Mutex
	uploads  []marketplace.InvoiceUpload
	upload   *marketplace.ProcessStatus
	polled   *marketplace.ProcessStatus
	err      error
	order    *models.Order
	orderErr error
}

func (m *fakeMarketplace) GetOrder(_ context.Context, _ marketplace.Credentials, _ string) (*models.Order, error) {
	return m.order, m.orderErr
}

func (m *fakeMarketplace) UploadInvoice(_ context.Context, _ marketplace.Credentials, upload marketplace.InvoiceUpload) (*marketplace.ProcessStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, upload)
	if m.err != nil {
		return nil, m.err
	}
	copied := *m.upload
	return &copied, nil
}

func (m *fakeMarketplace) WaitForProcess(_ context.Context, _ marketplace.Credentials, _ string) (*marketplace.ProcessStatus, error) {
	if m.polled == nil {
		return nil, context.DeadlineExceeded
	}
	copied := *m.polled
	return &copied, nil
}

func (m *fakeMarketplace) Uploads() []marketplace.InvoiceUpload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]marketplace.InvoiceUpload(nil), m.uploads...)
}
