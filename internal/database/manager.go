package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HealthStatus is the last observed state of the database
type HealthStatus struct {
	Healthy         bool          `json:"healthy"`
	Message         string        `json:"message,omitempty"`
	CheckedAt       time.Time     `json:"checkedAt"`
	ResponseTime    time.Duration `json:"responseTime"`
	OpenConnections int           `json:"openConnections"`
}

// Manager owns the database connection lifecycle
type Manager struct {
	mu              sync.RWMutex
	config          *ConnectionConfig
	logger          *logrus.Logger
	db              *sql.DB
	lastHealthCheck time.Time
	healthStatus    *HealthStatus
}

// NewManager creates a new database manager
func NewManager(config *ConnectionConfig) *Manager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	return &Manager{
		config: config,
		logger: config.Logger,
	}
}

// Connect opens the database and applies pending migrations when AutoMigrate is set
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return fmt.Errorf("database already connected")
	}

	db, err := Open(m.config)
	if err != nil {
		return err
	}

	if m.config.AutoMigrate {
		if err := NewMigrationManager(db, m.logger).RunMigrations(); err != nil {
			db.Close()
			return err
		}
	}

	if err := checkHealth(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("initial health check failed: %w", err)
	}

	m.db = db
	m.lastHealthCheck = time.Now()
	m.logger.WithField("db_path", m.config.DatabasePath).Info("Database connection established")
	return nil
}

// Disconnect closes the database connection
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}

	err := m.db.Close()
	m.db = nil
	m.healthStatus = nil

	if err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	m.logger.Info("Database connection closed")
	return nil
}

// Close is an alias of Disconnect
func (m *Manager) Close() error {
	return m.Disconnect()
}

// GetDB returns the database connection, or nil when disconnected
func (m *Manager) GetDB() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// IsConnected returns true if the database is connected
func (m *Manager) IsConnected() bool {
	return m.GetDB() != nil
}

// MigrationManager returns a migration manager bound to this connection
func (m *Manager) MigrationManager() *MigrationManager {
	db := m.GetDB()
	if db == nil {
		return nil
	}
	return NewMigrationManager(db, m.logger)
}

// CheckHealth pings the database, confirms foreign keys are enforced and caches the result
func (m *Manager) CheckHealth(ctx context.Context) error {
	db := m.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}

	start := time.Now()
	err := checkHealth(ctx, db)

	status := &HealthStatus{
		Healthy:         err == nil,
		CheckedAt:       time.Now(),
		ResponseTime:    time.Since(start),
		OpenConnections: db.Stats().OpenConnections,
	}
	if err != nil {
		status.Message = err.Error()
	}

	m.mu.Lock()
	m.lastHealthCheck = status.CheckedAt
	m.healthStatus = status
	m.mu.Unlock()

	return err
}

// GetHealthStatus returns the cached status, refreshing it when older than a minute
func (m *Manager) GetHealthStatus(ctx context.Context) *HealthStatus {
	m.mu.RLock()
	cached := m.healthStatus
	fresh := cached != nil && time.Since(m.lastHealthCheck) < time.Minute
	m.mu.RUnlock()

	if fresh {
		return cached
	}

	if err := m.CheckHealth(ctx); err != nil && !m.IsConnected() {
		return &HealthStatus{Healthy: false, Message: err.Error(), CheckedAt: time.Now()}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthStatus
}

// LogStats logs connection pool statistics
func (m *Manager) LogStats() {
	db := m.GetDB()
	if db == nil {
		return
	}

	stats := db.Stats()
	m.logger.WithFields(logrus.Fields{
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"wait_count":       stats.WaitCount,
		"wait_duration":    stats.WaitDuration,
	}).Info("Database connection pool stats")
}

// CreateBackup writes a consistent copy of the database to backupPath
func (m *Manager) CreateBackup(ctx context.Context, backupPath string) error {
	db := m.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}

	m.logger.WithField("backup_path", backupPath).Info("Creating SQLite backup")

	query := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(backupPath, "'", "''"))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create SQLite backup: %w", err)
	}

	m.logger.WithField("backup_path", backupPath).Info("SQLite backup created successfully")
	return nil
}

// StartHealthCheckMonitor checks the database every interval until ctx is cancelled
func (m *Manager) StartHealthCheckMonitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				m.logger.Info("Health check monitor stopped")
				return
			case <-ticker.C:
				if err := m.CheckHealth(ctx); err != nil {
					m.logger.WithError(err).Warn("Health check failed")
				} else {
					m.logger.Debug("Health check passed")
				}
			}
		}
	}()

	m.logger.WithField("interval", interval).Info("Health check monitor started")
}

func checkHealth(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var fkEnabled int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		return fmt.Errorf("failed to check foreign key status: %w", err)
	}
	if fkEnabled != 1 {
		return fmt.Errorf("foreign keys are not enabled")
	}

	return nil
}
