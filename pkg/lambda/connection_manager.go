package lambda

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"bol-invoice-api/internal/config"
	"bol-invoice-api/pkg/server"
)

// staleAfter is how long a warm container may sit idle before it counts as unhealthy
const staleAfter = 5 * time.Minute

// ConnectionManager keeps one container and router alive across warm Lambda invocations
type ConnectionManager struct {
	mu        sync.RWMutex
	container *server.Container
	router    http.Handler
	lastUsed  time.Time
	config    *config.Config
	opts      []server.Option
}

var (
	globalConnectionManager *ConnectionManager
	connectionManagerOnce   sync.Once
)

// GetConnectionManager returns the global connection manager instance
func GetConnectionManager() *ConnectionManager {
	connectionManagerOnce.Do(func() {
		globalConnectionManager = &ConnectionManager{}
	})
	return globalConnectionManager
}

// NewConnectionManager creates a manager for cfg; a nil cfg loads the serverless configuration lazily
func NewConnectionManager(cfg *config.Config, opts ...server.Option) *ConnectionManager {
	return &ConnectionManager{config: cfg, opts: opts}
}

// Initialize builds the container if it does not exist yet
func (cm *ConnectionManager) Initialize(ctx context.Context) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container != nil {
		return nil
	}

	if cm.config == nil {
		cfg, err := config.GetOptimizedConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cm.config = cfg
	}

	container, err := server.NewContainer(ctx, cm.config, cm.opts...)
	if err != nil {
		return err
	}

	cm.container = container
	cm.router = container.Router()
	cm.lastUsed = time.Now()
	return nil
}

// GetContainer returns the service container, initializing if necessary
func (cm *ConnectionManager) GetContainer(ctx context.Context) (*server.Container, error) {
	cm.mu.RLock()
	container := cm.container
	cm.mu.RUnlock()

	if container == nil {
		if err := cm.Initialize(ctx); err != nil {
			return nil, err
		}
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.lastUsed = time.Now()
	return cm.container, nil
}

// Handle serves an API Gateway proxy event through the invoice API router
func (cm *ConnectionManager) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	container, err := cm.GetContainer(ctx)
	if err != nil {
		return ErrorResponse(http.StatusServiceUnavailable, "Service unavailable"), nil
	}

	req, err := RequestFromAPIGateway(event)
	if err != nil {
		return ErrorResponse(http.StatusBadRequest, err.Error()), nil
	}

	cm.mu.RLock()
	router := cm.router
	cm.mu.RUnlock()

	resp, err := Serve(ctx, router, req)
	if err != nil {
		container.Logger.WithError(err).WithField("path", event.Path).Error("Failed to dispatch Lambda request")
		return ErrorResponse(http.StatusInternalServerError, "Internal server error"), nil
	}

	return resp.ToAPIGateway(), nil
}

// IsHealthy checks if the connection manager is healthy
func (cm *ConnectionManager) IsHealthy() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.container == nil {
		return false
	}
	return time.Since(cm.lastUsed) < staleAfter
}

// Cleanup closes the container; the next request rebuilds it
func (cm *ConnectionManager) Cleanup() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container != nil {
		if err := cm.container.Close(); err != nil {
			return err
		}
		cm.container = nil
		cm.router = nil
	}

	return nil
}
