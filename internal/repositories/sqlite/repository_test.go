package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bol-invoice-api/internal/database"
	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func setupTestRepos(t *testing.T) *repositories.RepositoryContainer {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	config := database.DefaultConnectionConfig()
	config.DatabasePath = filepath.Join(t.TempDir(), "test.db")
	config.Logger = logger

	db, err := database.Open(config)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.NewMigrationManager(db, logger).RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return NewRepositoryContainer(db, logger)
}

func testInvoice(tenantID, number string) *models.Invoice {
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	marketplaceOrderID := "BOL-" + number
	vatNumber := "BE0123456789"

	return &models.Invoice{
		ID:                 uuid.New().String(),
		InvoiceNumber:      number,
		TenantID:           tenantID,
		OrderID:            "order-" + number,
		MarketplaceOrderID: &marketplaceOrderID,
		TemplateID:         "template-1",
		Customer: models.CustomerDetails{
			Name:        "Els Peeters",
			CountryCode: "BE",
			VATNumber:   &vatNumber,
		},
		Seller: models.SellerIdentity{
			Name:        "Webshop BV",
			CountryCode: "NL",
			VATNumber:   "NL123456789B01",
		},
		InvoiceDate:             day,
		DueDate:                 day.AddDate(0, 0, 14),
		Currency:                "EUR",
		SubtotalExclVat:         decimal.RequireFromString("82.64"),
		VatTotal:                decimal.RequireFromString("17.36"),
		TotalAmount:             decimal.RequireFromString("100.00"),
		Status:                  models.InvoiceStatusDraft,
		Language:                "nl",
		MarketplaceUploadStatus: models.UploadStatusPending,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

func TestInvoiceRepository_CreateAndGet(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	invoice := testInvoice("tenant-1", "INV-000001")
	if err := repos.Invoices.Create(ctx, invoice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	retrieved, err := repos.Invoices.GetByID(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}

	if retrieved.InvoiceNumber != "INV-000001" {
		t.Errorf("Expected invoice number INV-000001, got %s", retrieved.InvoiceNumber)
	}
	if !retrieved.TotalAmount.Equal(invoice.TotalAmount) {
		t.Errorf("Expected total %s, got %s", invoice.TotalAmount, retrieved.TotalAmount)
	}
	if !retrieved.InvoiceDate.Equal(invoice.InvoiceDate) {
		t.Errorf("Expected invoice date %v, got %v", invoice.InvoiceDate, retrieved.InvoiceDate)
	}
	if retrieved.Customer.VATNumber == nil || *retrieved.Customer.VATNumber != "BE0123456789" {
		t.Errorf("Customer VAT number not preserved: %v", retrieved.Customer.VATNumber)
	}
	if retrieved.Seller.VATNumber != "NL123456789B01" {
		t.Errorf("Seller VAT number not preserved: %s", retrieved.Seller.VATNumber)
	}
	if retrieved.ShipmentID != nil {
		t.Errorf("Expected nil shipment ID, got %v", *retrieved.ShipmentID)
	}

	if _, err := repos.Invoices.GetByID(ctx, "missing"); !repositories.IsNotFound(err) {
		t.Errorf("Expected not found error, got %v", err)
	}
	if _, err := repos.Invoices.GetByID(ctx, ""); !errors.Is(err, repositories.ErrInvalidID) {
		t.Errorf("Expected invalid ID error, got %v", err)
	}
}

func TestInvoiceRepository_DuplicateNumber(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if err := repos.Invoices.Create(ctx, testInvoice("tenant-1", "INV-000001")); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	err := repos.Invoices.Create(ctx, testInvoice("tenant-1", "INV-000001"))
	if !repositories.IsDuplicate(err) {
		t.Errorf("Expected duplicate error, got %v", err)
	}

	if err := repos.Invoices.Create(ctx, testInvoice("tenant-2", "INV-000001")); err != nil {
		t.Errorf("Same number for another tenant should be accepted: %v", err)
	}
}

func TestInvoiceRepository_LatestNumber(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	numbers := []struct {
		tenant string
		number string
	}{
		{"tenant-1", "INV-000009"},
		{"tenant-1", "INV-000010"},
		{"tenant-1", "INV-1000000"},
		{"tenant-1", "INV-00001X"},
		{"tenant-1", "INVOICE-999999"},
		{"tenant-1", "A_B-000050"},
		{"tenant-2", "INV-9999999"},
	}
	for _, n := range numbers {
		if err := repos.Invoices.Create(ctx, testInvoice(n.tenant, n.number)); err != nil {
			t.Fatalf("Create(%s) failed: %v", n.number, err)
		}
	}

	tests := []struct {
		tenant string
		prefix string
		want   string
	}{
		{"tenant-1", "INV", "INV-1000000"},
		{"tenant-1", "A_B", "A_B-000050"},
		{"tenant-1", "A", ""},
		{"tenant-2", "INV", "INV-9999999"},
		{"tenant-3", "INV", ""},
	}
	for _, tt := range tests {
		got, err := repos.Invoices.LatestNumber(ctx, tt.tenant, tt.prefix)
		if err != nil {
			t.Fatalf("LatestNumber(%s, %s) failed: %v", tt.tenant, tt.prefix, err)
		}
		if got != tt.want {
			t.Errorf("LatestNumber(%s, %s) = %q, want %q", tt.tenant, tt.prefix, got, tt.want)
		}
	}
}

func TestInvoiceRepository_UpdateStatus(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	invoice := testInvoice("tenant-1", "INV-000001")
	if err := repos.Invoices.Create(ctx, invoice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := repos.Invoices.UpdateStatus(ctx, invoice.ID, models.InvoiceStatusDraft, models.InvoiceStatusGenerated); err != nil {
		t.Fatalf("UpdateStatus() failed: %v", err)
	}

	err := repos.Invoices.UpdateStatus(ctx, invoice.ID, models.InvoiceStatusDraft, models.InvoiceStatusSent)
	if !repositories.IsConcurrency(err) {
		t.Errorf("Expected concurrency error for stale status, got %v", err)
	}

	if err := repos.Invoices.UpdateUploadStatus(ctx, invoice.ID, models.UploadStatusFailed); err != nil {
		t.Fatalf("UpdateUploadStatus() failed: %v", err)
	}

	retrieved, err := repos.Invoices.GetByID(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if retrieved.Status != models.InvoiceStatusGenerated {
		t.Errorf("Expected status generated, got %s", retrieved.Status)
	}
	if retrieved.MarketplaceUploadStatus != models.UploadStatusFailed {
		t.Errorf("Expected upload status failed, got %s", retrieved.MarketplaceUploadStatus)
	}
}

func TestInvoiceRepository_List(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	for i, number := range []string{"INV-000001", "INV-000002", "INV-000003"} {
		invoice := testInvoice("tenant-1", number)
		invoice.InvoiceDate = invoice.InvoiceDate.AddDate(0, 0, -i)
		invoice.DueDate = invoice.InvoiceDate.AddDate(0, 0, 14)
		if err := repos.Invoices.Create(ctx, invoice); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}
	if err := repos.Invoices.Create(ctx, testInvoice("tenant-2", "INV-000001")); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	filter := models.InvoiceFilter{TenantID: "tenant-1", Page: 2, Limit: 2}
	invoices, total, err := repos.Invoices.List(ctx, filter)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
	if len(invoices) != 1 {
		t.Fatalf("Expected 1 invoice on page 2, got %d", len(invoices))
	}
	if invoices[0].InvoiceNumber != "INV-000003" {
		t.Errorf("Expected oldest invoice on last page, got %s", invoices[0].InvoiceNumber)
	}

	draft := models.InvoiceStatusDraft
	_, total, err = repos.Invoices.List(ctx, models.InvoiceFilter{TenantID: "tenant-2", Status: &draft, Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if total != 1 {
		t.Errorf("Expected 1 draft invoice for tenant-2, got %d", total)
	}
}

func TestTransactionManager_RollsBack(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	invoice := testInvoice("tenant-1", "INV-000001")
	sentinel := errors.New("abort")

	err := repos.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repos.Invoices.Create(ctx, invoice); err != nil {
			return err
		}
		return repos.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
			return sentinel
		})
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Expected sentinel error, got %v", err)
	}

	if _, err := repos.Invoices.GetByID(ctx, invoice.ID); !repositories.IsNotFound(err) {
		t.Errorf("Invoice should have been rolled back, got %v", err)
	}
}

func TestAuditLogRepository_AppendOnly(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	invoice := testInvoice("tenant-1", "INV-000001")
	if err := repos.Invoices.Create(ctx, invoice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	for _, action := range []string{models.AuditActionInvoiceGenerated, models.AuditActionStatusChanged} {
		entry, err := models.NewAuditLogEntry(invoice.ID, "user-1", action, map[string]interface{}{"n": 1})
		if err != nil {
			t.Fatalf("NewAuditLogEntry() failed: %v", err)
		}
		if err := repos.AuditLogs.Append(ctx, entry); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}

	entries, err := repos.AuditLogs.ListByInvoice(ctx, invoice.ID, 0)
	if err != nil {
		t.Fatalf("ListByInvoice() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if string(entries[0].DetailsJSON) != `{"n":1}` {
		t.Errorf("Unexpected details: %s", entries[0].DetailsJSON)
	}

	limited, err := repos.AuditLogs.ListByInvoice(ctx, invoice.ID, 1)
	if err != nil {
		t.Fatalf("ListByInvoice() failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected 1 entry with limit, got %d", len(limited))
	}

	orphan, _ := models.NewAuditLogEntry("missing-invoice", "user-1", models.AuditActionStatusChanged, nil)
	if err := repos.AuditLogs.Append(ctx, orphan); err == nil {
		t.Error("Expected foreign key violation for unknown invoice")
	}
}

func TestMarketplaceMappingRepository(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	invoice := testInvoice("tenant-1", "INV-000001")
	if err := repos.Invoices.Create(ctx, invoice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	mapping := models.NewMarketplaceInvoiceMapping(invoice.ID, "BOL-1")
	if err := repos.Mappings.Create(ctx, mapping); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := repos.Mappings.Create(ctx, models.NewMarketplaceInvoiceMapping(invoice.ID, "BOL-1")); !repositories.IsDuplicate(err) {
		t.Errorf("Expected duplicate error for second mapping, got %v", err)
	}

	attemptAt := time.Now().UTC().Truncate(time.Second)
	processID := "ps-1"
	entityID := "bol-invoice-1"
	mapping.UploadStatus = models.UploadStatusUploaded
	mapping.AttemptCount = 1
	mapping.LastAttemptAt = &attemptAt
	mapping.ProcessStatusID = &processID
	mapping.MarketplaceInvoiceID = &entityID
	if err := repos.Mappings.Update(ctx, mapping); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	retrieved, err := repos.Mappings.GetByInvoiceID(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetByInvoiceID() failed: %v", err)
	}
	if !retrieved.IsUploaded() {
		t.Errorf("Expected uploaded mapping, got %s", retrieved.UploadStatus)
	}
	if retrieved.LastAttemptAt == nil || !retrieved.LastAttemptAt.Equal(attemptAt) {
		t.Errorf("Expected last attempt %v, got %v", attemptAt, retrieved.LastAttemptAt)
	}
	if retrieved.MarketplaceInvoiceID == nil || *retrieved.MarketplaceInvoiceID != entityID {
		t.Errorf("Marketplace invoice ID not preserved")
	}
}

func TestVatRuleRepository_Defaults(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	global := models.NewVatRule("Default", "", decimal.NewFromInt(21), true)
	standard := models.NewVatRule("Standard", "DE", decimal.NewFromInt(19), true)
	reduced := models.NewVatRule("Reduced", "DE", decimal.NewFromInt(7), false)
	for _, rule := range []*models.VatRule{reduced, standard, global} {
		if err := repos.VatRules.Create(ctx, rule); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	second := models.NewVatRule("Standard 2", "DE", decimal.NewFromInt(20), true)
	if err := repos.VatRules.Create(ctx, second); !repositories.IsDuplicate(err) {
		t.Errorf("Expected duplicate error for second active default, got %v", err)
	}

	rules, err := repos.VatRules.ListActiveByCountry(ctx, "DE")
	if err != nil {
		t.Fatalf("ListActiveByCountry() failed: %v", err)
	}
	if len(rules) != 2 || rules[0].ID != standard.ID {
		t.Errorf("Expected default rule first, got %+v", rules)
	}

	fallback, err := repos.VatRules.GetGlobalDefault(ctx)
	if err != nil {
		t.Fatalf("GetGlobalDefault() failed: %v", err)
	}
	if fallback.ID != global.ID {
		t.Errorf("Expected rule without country as global default, got %s %s", fallback.CountryCode, fallback.Name)
	}

	count, err := repos.VatRules.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 rules, got %d", count)
	}
}
