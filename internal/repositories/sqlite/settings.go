package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// InvoiceSettingsRepository implements the InvoiceSettingsRepository interface for SQLite
type InvoiceSettingsRepository struct {
	*BaseRepository[models.InvoiceSettings]
}

// NewInvoiceSettingsRepository creates a new SQLite invoice settings repository
func NewInvoiceSettingsRepository(db *sql.DB, logger *logrus.Logger) repositories.InvoiceSettingsRepository {
	return &InvoiceSettingsRepository{
		BaseRepository: NewBaseRepository[models.InvoiceSettings](db, "invoice_settings", logger),
	}
}

// Get retrieves the settings of a tenant
func (r *InvoiceSettingsRepository) Get(ctx context.Context, tenantID string) (*models.InvoiceSettings, error) {
	if err := r.validateID(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT tenant_id, seller_json, number_prefix, payment_terms_days, default_language,
			   currency, onboarding_completed, updated_at
		FROM invoice_settings
		WHERE tenant_id = ?`

	settings := &models.InvoiceSettings{}
	var sellerJSON string
	err := r.executeQueryRow(ctx, "get", query, tenantID).Scan(
		&settings.TenantID,
		&sellerJSON,
		&settings.NumberPrefix,
		&settings.PaymentTermsDays,
		&settings.DefaultLanguage,
		&settings.Currency,
		&settings.OnboardingCompleted,
		&settings.UpdatedAt,
	)
	if err != nil {
		return nil, r.notFoundOr(err, "get", tenantID)
	}

	if err := json.Unmarshal([]byte(sellerJSON), &settings.Seller); err != nil {
		return nil, repositories.NewRepositoryError("get", "invoice_settings", tenantID, err)
	}

	return settings, nil
}

// Upsert inserts or replaces the settings of a tenant
func (r *InvoiceSettingsRepository) Upsert(ctx context.Context, settings *models.InvoiceSettings) error {
	if err := r.validateID(settings.TenantID); err != nil {
		return err
	}

	sellerJSON, err := json.Marshal(settings.Seller)
	if err != nil {
		return repositories.NewRepositoryError("upsert", "invoice_settings", settings.TenantID, err)
	}

	settings.UpdatedAt = time.Now().UTC()
	query := `
		INSERT INTO invoice_settings (
			tenant_id, seller_json, number_prefix, payment_terms_days, default_language,
			currency, onboarding_completed, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			seller_json = excluded.seller_json,
			number_prefix = excluded.number_prefix,
			payment_terms_days = excluded.payment_terms_days,
			default_language = excluded.default_language,
			currency = excluded.currency,
			onboarding_completed = excluded.onboarding_completed,
			updated_at = excluded.updated_at`

	_, err = r.executeExec(ctx, "upsert", query,
		settings.TenantID,
		string(sellerJSON),
		settings.NumberPrefix,
		settings.PaymentTermsDays,
		settings.DefaultLanguage,
		settings.Currency,
		settings.OnboardingCompleted,
		settings.UpdatedAt,
	)
	return err
}

const templateColumns = `id, tenant_id, name, is_default, accent_color, header_text, footer_text, show_ean, created_at, updated_at`

// TemplateRepository implements the TemplateRepository interface for SQLite
type TemplateRepository struct {
	*BaseRepository[models.InvoiceTemplate]
}

// NewTemplateRepository creates a new SQLite template repository
func NewTemplateRepository(db *sql.DB, logger *logrus.Logger) repositories.TemplateRepository {
	return &TemplateRepository{
		BaseRepository: NewBaseRepository[models.InvoiceTemplate](db, "invoice_templates", logger),
	}
}

// Create creates a new template
func (r *TemplateRepository) Create(ctx context.Context, template *models.InvoiceTemplate) error {
	if err := template.Validate(); err != nil {
		return repositories.ValidationError("invoice_template", template.ID, err)
	}

	query := `INSERT INTO invoice_templates (` + templateColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.executeExec(ctx, "create", query,
		template.ID,
		template.TenantID,
		template.Name,
		template.IsDefault,
		template.AccentColor,
		template.HeaderText,
		template.FooterText,
		template.ShowEAN,
		template.CreatedAt.UTC(),
		template.UpdatedAt.UTC(),
	)
	if err != nil {
		if repositories.IsDuplicate(err) {
			return repositories.DuplicateError("invoice_template", "default for tenant", template.TenantID)
		}
		return err
	}

	return nil
}

// GetByID retrieves a template by ID
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.InvoiceTemplate, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	query := `SELECT ` + templateColumns + ` FROM invoice_templates WHERE id = ?`
	template, err := scanTemplate(r.executeQueryRow(ctx, "get_by_id", query, id))
	if err != nil {
		return nil, r.notFoundOr(err, "get_by_id", id)
	}

	return template, nil
}

// GetDefault retrieves the default template of a tenant
func (r *TemplateRepository) GetDefault(ctx context.Context, tenantID string) (*models.InvoiceTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM invoice_templates WHERE tenant_id = ? AND is_default = 1`
	template, err := scanTemplate(r.executeQueryRow(ctx, "get_default", query, tenantID))
	if err != nil {
		return nil, r.notFoundOr(err, "get_default", tenantID)
	}

	return template, nil
}

// ListByTenant retrieves all templates of a tenant
func (r *TemplateRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.InvoiceTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM invoice_templates WHERE tenant_id = ? ORDER BY is_default DESC, name`
	rows, err := r.executeQuery(ctx, "list_by_tenant", query, tenantID)
	if err != nil {
		return nil, err
	}

	return r.scanAll(rows, "list_by_tenant", func(rows *sql.Rows) (*models.InvoiceTemplate, error) {
		return scanTemplate(rows)
	})
}

// ClearDefault unsets the default flag on all templates of a tenant
func (r *TemplateRepository) ClearDefault(ctx context.Context, tenantID string) error {
	query := `UPDATE invoice_templates SET is_default = 0, updated_at = ? WHERE tenant_id = ? AND is_default = 1`
	_, err := r.executeExec(ctx, "clear_default", query, time.Now().UTC(), tenantID)
	return err
}

func scanTemplate(row rowScanner) (*models.InvoiceTemplate, error) {
	template := &models.InvoiceTemplate{}
	err := row.Scan(
		&template.ID,
		&template.TenantID,
		&template.Name,
		&template.IsDefault,
		&template.AccentColor,
		&template.HeaderText,
		&template.FooterText,
		&template.ShowEAN,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return template, nil
}

// CredentialsRepository implements the CredentialsRepository interface for SQLite
type CredentialsRepository struct {
	*BaseRepository[models.MarketplaceCredentials]
}

// NewCredentialsRepository creates a new SQLite marketplace credentials repository
func NewCredentialsRepository(db *sql.DB, logger *logrus.Logger) repositories.CredentialsRepository {
	return &CredentialsRepository{
		BaseRepository: NewBaseRepository[models.MarketplaceCredentials](db, "marketplace_credentials", logger),
	}
}

// Get retrieves the credentials of a tenant
func (r *CredentialsRepository) Get(ctx context.Context, tenantID string) (*models.MarketplaceCredentials, error) {
	if err := r.validateID(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT tenant_id, client_id, client_secret, updated_at FROM marketplace_credentials WHERE tenant_id = ?`
	creds := &models.MarketplaceCredentials{}
	err := r.executeQueryRow(ctx, "get", query, tenantID).Scan(
		&creds.TenantID,
		&creds.ClientID,
		&creds.ClientSecret,
		&creds.UpdatedAt,
	)
	if err != nil {
		return nil, r.notFoundOr(err, "get", tenantID)
	}

	return creds, nil
}

// Upsert inserts or replaces the credentials of a tenant
func (r *CredentialsRepository) Upsert(ctx context.Context, creds *models.MarketplaceCredentials) error {
	if err := creds.Validate(); err != nil {
		return repositories.ValidationError("marketplace_credentials", creds.TenantID, err)
	}

	creds.UpdatedAt = time.Now().UTC()
	query := `
		INSERT INTO marketplace_credentials (tenant_id, client_id, client_secret, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			client_id = excluded.client_id,
			client_secret = excluded.client_secret,
			updated_at = excluded.updated_at`

	_, err := r.executeExec(ctx, "upsert", query, creds.TenantID, creds.ClientID, creds.ClientSecret, creds.UpdatedAt)
	return err
}
