package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/adapters/marketplace"
	"bol-invoice-api/internal/adapters/pdf"
	"bol-invoice-api/internal/adapters/storage"
	"bol-invoice-api/internal/config"
	"bol-invoice-api/internal/database"
	"bol-invoice-api/internal/handlers"
	"bol-invoice-api/internal/middleware"
	"bol-invoice-api/internal/repositories"
	"bol-invoice-api/internal/repositories/sqlite"
	"bol-invoice-api/internal/services"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logrus.Logger
	Database     *database.Manager
	Repositories *repositories.RepositoryContainer
	Services     *services.ServiceContainer
	AuthService  *middleware.AuthService

	archive storage.FileStorage
}

// Option customises container construction
type Option func(*containerOptions)

type containerOptions struct {
	logger      *logrus.Logger
	marketplace services.MarketplaceClient
	renderer    services.DocumentRenderer
}

// WithLogger replaces the logger built from configuration
func WithLogger(logger *logrus.Logger) Option {
	return func(o *containerOptions) { o.logger = logger }
}

// WithMarketplaceClient replaces the retailer API client built from configuration
func WithMarketplaceClient(client services.MarketplaceClient) Option {
	return func(o *containerOptions) { o.marketplace = client }
}

// WithRenderer replaces the PDF renderer
func WithRenderer(renderer services.DocumentRenderer) Option {
	return func(o *containerOptions) { o.renderer = renderer }
}

// NewContainer connects the database, seeds reference data and wires every service
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	options := &containerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.logger
	if logger == nil {
		logger = cfg.NewLogger()
	}

	manager := database.NewManager(cfg.Database.ToConnectionConfig(logger))
	if err := manager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Database: manager,
	}

	if err := c.wire(ctx, options); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close container after wiring error")
		}
		return nil, err
	}

	return c, nil
}

func (c *Container) wire(ctx context.Context, options *containerOptions) error {
	cfg := c.Config

	c.Repositories = sqlite.NewRepositoryContainer(c.Database.GetDB(), c.Logger)

	if cfg.Database.SeedVatRules {
		if _, err := database.SeedVatRules(ctx, c.Repositories, c.Logger); err != nil {
			return fmt.Errorf("failed to seed VAT rules: %w", err)
		}
	}

	if adapterConfig := cfg.Storage.StorageAdapterConfig(); adapterConfig != nil {
		archive, err := storage.CreateFromConfig(adapterConfig, c.Logger)
		if err != nil {
			return fmt.Errorf("failed to create document archive: %w", err)
		}
		c.archive = archive
	}

	renderer := options.renderer
	if renderer == nil {
		renderer = pdf.NewRenderer()
	}

	serviceConfig := &services.ServiceConfig{
		NumberRetries: cfg.Invoicing.NumberRetries,
		UploadTimeout: cfg.Marketplace.UploadTimeout,
		Renderer:      renderer,
		Archive:       c.archive,
		Logger:        c.Logger,
	}
	switch {
	case options.marketplace != nil:
		serviceConfig.Marketplace = options.marketplace
	case cfg.Marketplace.Enabled:
		serviceConfig.Marketplace = marketplace.NewClient(cfg.Marketplace.MarketplaceClientConfig(), c.Logger)
	}

	container, err := services.NewServiceContainer(c.Repositories, serviceConfig)
	if err != nil {
		return fmt.Errorf("failed to create service container: %w", err)
	}
	if err := container.Validate(); err != nil {
		return err
	}
	c.Services = container

	if cfg.AuthEnabled() {
		c.AuthService = middleware.NewAuthService(&middleware.AuthConfig{
			JWTSecret:     cfg.JWT.Secret,
			TokenDuration: c.TokenDuration(),
			Issuer:        cfg.JWT.Issuer,
		})
	}

	c.Logger.WithFields(logrus.Fields{
		"database":    cfg.Database.Path,
		"storage":     cfg.Storage.Type,
		"marketplace": serviceConfig.Marketplace != nil,
		"auth":        c.AuthService != nil,
	}).Info("Application container initialized")

	return nil
}

// TokenDuration returns the lifetime of issued JWTs
func (c *Container) TokenDuration() time.Duration {
	return time.Duration(c.Config.JWT.ExpiryHours) * time.Hour
}

// Router builds the HTTP engine serving the invoice API
func (c *Container) Router() *gin.Engine {
	routerConfig := &handlers.RouterConfig{
		Services:      c.Services,
		AuthService:   c.AuthService,
		TokenDuration: c.TokenDuration(),
		HealthCheck:   c.Repositories.Health,
		Development:   c.Config.IsDevelopment(),
		Logger:        c.Logger,
	}
	if c.Config.RateLimit.Enabled {
		routerConfig.RateLimitPerSecond = c.Config.RateLimit.RequestsPerSecond
		routerConfig.RateLimitBurst = c.Config.RateLimit.Burst
	}

	return handlers.NewRouter(routerConfig)
}

// Close cleans up all resources
func (c *Container) Close() error {
	if c.Services != nil {
		if err := c.Services.Close(); err != nil {
			return fmt.Errorf("failed to close services: %w", err)
		}
	} else if c.archive != nil {
		if err := c.archive.Close(); err != nil {
			return fmt.Errorf("failed to close document archive: %w", err)
		}
	}

	if c.Database != nil {
		if err := c.Database.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
