package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"bol-invoice-api/internal/adapters/marketplace"
	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/repositories"
)

// orderSource implements OrderSource over the synced order table, falling back to the
// retailer API for orders that were never synced
type orderSource struct {
	orderRepo       repositories.OrderRepository
	credentialsRepo repositories.CredentialsRepository
	client          MarketplaceClient
	logger          *logrus.Logger
}

// NewOrderSource creates an order source. A nil client disables the remote fallback.
func NewOrderSource(
	orderRepo repositories.OrderRepository,
	credentialsRepo repositories.CredentialsRepository,
	client MarketplaceClient,
	logger *logrus.Logger,
) OrderSource {
	if logger == nil {
		logger = logrus.New()
	}
	return &orderSource{
		orderRepo:       orderRepo,
		credentialsRepo: credentialsRepo,
		client:          client,
		logger:          logger,
	}
}

// GetOrder returns the tenant's order or nil when it does not exist
func (s *orderSource) GetOrder(ctx context.Context, orderID, tenantID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID, tenantID)
	if err == nil {
		return order, nil
	}
	if !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if s.client == nil || s.credentialsRepo == nil {
		return nil, nil
	}

	creds, err := s.credentialsRepo.Get(ctx, tenantID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get marketplace credentials: %w", err)
	}

	order, err = s.client.GetOrder(ctx, marketplace.Credentials{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
	}, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order from marketplace: %w", err)
	}
	if order == nil {
		return nil, nil
	}

	order.TenantID = tenantID
	order.SyncedAt = time.Now().UTC()
	if err := s.orderRepo.Upsert(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to store fetched order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"order_id":  orderID,
		"items":     len(order.Items),
	}).Info("Order fetched from marketplace")

	return order, nil
}
