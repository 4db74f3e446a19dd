package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/adapters/marketplace"
	"bol-invoice-api/internal/adapters/storage"
	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"
)

// ServiceContainer holds all service instances
type ServiceContainer struct {
	VatService         VatService
	InvoiceService     InvoiceService
	DocumentService    DocumentService
	MarketplaceService MarketplaceService
	SettingsService    SettingsService
	OrderSource        OrderSource
	NumberGenerator    InvoiceNumberGenerator

	archive storage.FileStorage
}

// ServiceConfig holds configuration and collaborators for services
type ServiceConfig struct {
	NumberRetries int
	UploadTimeout time.Duration

	// Marketplace is the retailer API client; nil disables order fetching and uploads fail
	Marketplace MarketplaceClient

	Renderer DocumentRenderer

	// Archive caches rendered documents; nil renders on every request
	Archive storage.FileStorage

	Logger *logrus.Logger
}

// NewServiceContainer creates a new service container with all services
func NewServiceContainer(repos *repositories.RepositoryContainer, config *ServiceConfig) (*ServiceContainer, error) {
	if repos == nil {
		return nil, fmt.Errorf("repository container cannot be nil")
	}
	if config == nil {
		config = &ServiceConfig{}
	}
	if config.Renderer == nil {
		return nil, fmt.Errorf("document renderer cannot be nil")
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
	}

	client := config.Marketplace
	if client == nil {
		client = unavailableMarketplace{}
	}

	vatService := NewVatService(repos.VatRules, repos.Transactions, logger)
	numbers := NewInvoiceNumberGenerator(repos.Invoices)
	orders := NewOrderSource(repos.Orders, repos.Credentials, config.Marketplace, logger)
	documents := NewDocumentService(repos, config.Renderer, config.Archive, logger)

	return &ServiceContainer{
		VatService:         vatService,
		InvoiceService:     NewInvoiceService(repos, orders, vatService, numbers, config.NumberRetries, logger),
		DocumentService:    documents,
		MarketplaceService: NewMarketplaceService(repos, client, documents, config.UploadTimeout, logger),
		SettingsService:    NewSettingsService(repos, logger),
		OrderSource:        orders,
		NumberGenerator:    numbers,
		archive:            config.Archive,
	}, nil
}

// Validate validates that all services are properly initialized
func (sc *ServiceContainer) Validate() error {
	if sc.VatService == nil {
		return fmt.Errorf("VAT service is nil")
	}
	if sc.InvoiceService == nil {
		return fmt.Errorf("invoice service is nil")
	}
	if sc.DocumentService == nil {
		return fmt.Errorf("document service is nil")
	}
	if sc.MarketplaceService == nil {
		return fmt.Errorf("marketplace service is nil")
	}
	if sc.SettingsService == nil {
		return fmt.Errorf("settings service is nil")
	}

	return nil
}

// Close releases the document archive
func (sc *ServiceContainer) Close() error {
	if sc.archive != nil {
		return sc.archive.Close()
	}
	return nil
}

var errMarketplaceUnavailable = errors.New("marketplace client is not configured")

// unavailableMarketplace fails every call so uploads are recorded as failed attempts
type unavailableMarketplace struct{}

func (unavailableMarketplace) GetOrder(context.Context, marketplace.Credentials, string) (*models.Order, error) {
	return nil, errMarketplaceUnavailable
}

func (unavailableMarketplace) UploadInvoice(context.Context, marketplace.Credentials, marketplace.InvoiceUpload) (*marketplace.ProcessStatus, error) {
	return nil, errMarketplaceUnavailable
}

func (unavailableMarketplace) WaitForProcess(context.Context, marketplace.Credentials, string) (*marketplace.ProcessStatus, error) {
	return nil, errMarketplaceUnavailable
}
