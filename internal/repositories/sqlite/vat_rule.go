package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

const vatRuleColumns = `id, name, rate_percent, country_code, is_default, is_active, description, created_at, updated_at`

// VatRuleRepository implements the VatRuleRepository interface for SQLite
type VatRuleRepository struct {
	*BaseRepository[models.VatRule]
}

// NewVatRuleRepository creates a new SQLite VAT rule repository
func NewVatRuleRepository(db *sql.DB, logger *logrus.Logger) repositories.VatRuleRepository {
	return &VatRuleRepository{
		BaseRepository: NewBaseRepository[models.VatRule](db, "vat_rules", logger),
	}
}

// Create creates a new VAT rule
func (r *VatRuleRepository) Create(ctx context.Context, rule *models.VatRule) error {
	if err := rule.Validate(); err != nil {
		return repositories.ValidationError("vat_rule", rule.ID, err)
	}

	query := `INSERT INTO vat_rules (` + vatRuleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.executeExec(ctx, "create", query,
		rule.ID,
		rule.Name,
		rule.RatePercent.String(),
		rule.CountryCode,
		rule.IsDefault,
		rule.IsActive,
		rule.Description,
		rule.CreatedAt.UTC(),
		rule.UpdatedAt.UTC(),
	)
	if err != nil {
		if repositories.IsDuplicate(err) {
			return repositories.DuplicateError("vat_rule", "default country", rule.CountryCode)
		}
		return err
	}

	return nil
}

// Update updates an existing VAT rule
func (r *VatRuleRepository) Update(ctx context.Context, rule *models.VatRule) error {
	if err := rule.Validate(); err != nil {
		return repositories.ValidationError("vat_rule", rule.ID, err)
	}

	rule.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE vat_rules
		SET name = ?, rate_percent = ?, country_code = ?, is_default = ?, is_active = ?,
			description = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.executeExec(ctx, "update", query,
		rule.Name,
		rule.RatePercent.String(),
		rule.CountryCode,
		rule.IsDefault,
		rule.IsActive,
		rule.Description,
		rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		if repositories.IsDuplicate(err) {
			return repositories.DuplicateError("vat_rule", "default country", rule.CountryCode)
		}
		return err
	}

	return r.checkRowsAffected(result, "update", rule.ID)
}

// GetByID retrieves a VAT rule by ID
func (r *VatRuleRepository) GetByID(ctx context.Context, id string) (*models.VatRule, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	query := `SELECT ` + vatRuleColumns + ` FROM vat_rules WHERE id = ?`
	rule, err := scanVatRule(r.executeQueryRow(ctx, "get_by_id", query, id))
	if err != nil {
		return nil, r.notFoundOr(err, "get_by_id", id)
	}

	return rule, nil
}

// List retrieves VAT rules matching the filter
func (r *VatRuleRepository) List(ctx context.Context, filter models.VatRuleFilter) ([]*models.VatRule, error) {
	var where []string
	var args []interface{}

	if filter.CountryCode != "" {
		where = append(where, "country_code = ?")
		args = append(args, strings.ToUpper(filter.CountryCode))
	}
	if filter.ActiveOnly {
		where = append(where, "is_active = 1")
	}

	query := `SELECT ` + vatRuleColumns + ` FROM vat_rules`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY country_code, is_default DESC, name"

	return r.list(ctx, "list", query, args...)
}

// ListActiveByCountry retrieves active rules for a country, default rules first
func (r *VatRuleRepository) ListActiveByCountry(ctx context.Context, countryCode string) ([]*models.VatRule, error) {
	query := `SELECT ` + vatRuleColumns + `
		FROM vat_rules
		WHERE country_code = ? AND is_active = 1
		ORDER BY is_default DESC, created_at ASC`

	return r.list(ctx, "list_active_by_country", query, strings.ToUpper(countryCode))
}

// GetGlobalDefault retrieves the fallback default rule
func (r *VatRuleRepository) GetGlobalDefault(ctx context.Context) (*models.VatRule, error) {
	query := `SELECT ` + vatRuleColumns + `
		FROM vat_rules
		WHERE is_default = 1 AND is_active = 1
		ORDER BY (country_code = '') DESC, created_at ASC
		LIMIT 1`

	rule, err := scanVatRule(r.executeQueryRow(ctx, "get_global_default", query))
	if err != nil {
		return nil, r.notFoundOr(err, "get_global_default", "global-default")
	}

	return rule, nil
}

// Count returns the number of stored VAT rules
func (r *VatRuleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.executeQueryRow(ctx, "count", "SELECT COUNT(*) FROM vat_rules").Scan(&count); err != nil {
		return 0, repositories.NewRepositoryError("count", "vat_rule", "", err)
	}
	return count, nil
}

func (r *VatRuleRepository) list(ctx context.Context, operation, query string, args ...interface{}) ([]*models.VatRule, error) {
	rows, err := r.executeQuery(ctx, operation, query, args...)
	if err != nil {
		return nil, err
	}

	return r.scanAll(rows, operation, func(rows *sql.Rows) (*models.VatRule, error) {
		return scanVatRule(rows)
	})
}

func scanVatRule(row rowScanner) (*models.VatRule, error) {
	rule := &models.VatRule{}
	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.RatePercent,
		&rule.CountryCode,
		&rule.IsDefault,
		&rule.IsActive,
		&rule.Description,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rule, nil
}
