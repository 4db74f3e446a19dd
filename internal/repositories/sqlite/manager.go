package sqlite

import (
	"database/sql"

	"bol-invoice-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// NewRepositoryContainer wires every SQLite repository onto one database handle
func NewRepositoryContainer(db *sql.DB, logger *logrus.Logger) *repositories.RepositoryContainer {
	if logger == nil {
		logger = logrus.New()
	}

	return &repositories.RepositoryContainer{
		Invoices:      NewInvoiceRepository(db, logger),
		InvoiceItems:  NewInvoiceItemRepository(db, logger),
		VatRules:      NewVatRuleRepository(db, logger),
		AuditLogs:     NewAuditLogRepository(db, logger),
		Mappings:      NewMarketplaceMappingRepository(db, logger),
		Orders:        NewOrderRepository(db, logger),
		Settings:      NewInvoiceSettingsRepository(db, logger),
		Templates:     NewTemplateRepository(db, logger),
		Credentials:   NewCredentialsRepository(db, logger),
		Transactions:  NewSQLiteTransactionManager(db, logger),
		HealthChecker: db.PingContext,
	}
}
