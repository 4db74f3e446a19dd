package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"bol-invoice-api/internal/middleware"
	"bol-invoice-api/internal/models"
	"bol-invoice-api/internal/services"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// RouterConfig holds configuration for setting up routes
type RouterConfig struct {
	Services *services.ServiceContainer

	// AuthService enables JWT authentication; nil serves every route without auth
	AuthService   *middleware.AuthService
	TokenDuration time.Duration

	// HealthCheck reports database health; nil reports healthy
	HealthCheck func(ctx context.Context) error

	RateLimitPerSecond float64
	RateLimitBurst     int
	Development        bool
	Logger             *logrus.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, config *RouterConfig) {
	logger := config.Logger
	invoiceHandler := NewInvoiceHandler(config.Services.InvoiceService, config.Services.DocumentService,
		config.Services.MarketplaceService, logger)
	vatHandler := NewVatHandler(config.Services.VatService, config.Services.SettingsService, logger)
	settingsHandler := NewSettingsHandler(config.Services.SettingsService, logger)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", healthHandler(config.HealthCheck))

	v1 := router.Group("/api/v1")
	if config.AuthService != nil {
		v1.Use(middleware.Authentication(config.AuthService, logger))
	}
	if config.RateLimitPerSecond > 0 {
		v1.Use(middleware.RateLimiter(logger, config.RateLimitPerSecond, config.RateLimitBurst))
	}

	invoices := v1.Group("/invoices")
	{
		invoices.POST("", invoiceHandler.GenerateInvoice)
		invoices.GET("", invoiceHandler.ListInvoices)
		invoices.GET("/:id", invoiceHandler.GetInvoice)
		invoices.PUT("/:id/status", invoiceHandler.UpdateInvoiceStatus)
		invoices.POST("/:id/marketplace-upload", invoiceHandler.UploadToMarketplace)
		invoices.GET("/:id/pdf", invoiceHandler.GetInvoicePDF)
	}

	vatRules := v1.Group("/vat-rules")
	{
		vatRules.GET("", vatHandler.ListRules)

		admin := vatRules.Group("")
		if config.AuthService != nil {
			admin.Use(middleware.Authorization(logger, middleware.RoleAdmin))
		}
		admin.POST("", vatHandler.CreateRule)
		admin.PUT("/:id", vatHandler.UpdateRule)
		admin.DELETE("/:id", vatHandler.DeactivateRule)
	}

	vat := v1.Group("/vat")
	{
		vat.GET("/resolve", vatHandler.ResolvePreview)
		vat.POST("/validate-number", vatHandler.ValidateVATNumber)
	}

	v1.GET("/invoice-settings", settingsHandler.GetSettings)
	v1.PUT("/invoice-settings", settingsHandler.UpdateSettings)
	v1.GET("/invoice-settings/status", settingsHandler.GetStatus)
	v1.GET("/invoice-templates", settingsHandler.ListTemplates)
	v1.POST("/invoice-templates", settingsHandler.CreateTemplate)
	v1.PUT("/marketplace-credentials", settingsHandler.UpdateCredentials)

	if config.AuthService != nil {
		authHandler := NewAuthHandler(config.AuthService, config.TokenDuration)
		v1.GET("/auth/me", authHandler.GetCurrentUser)

		if config.Development {
			router.POST("/dev/token", authHandler.IssueDevToken)
		}
	}
}

// SetupMiddleware configures global middleware
func SetupMiddleware(router *gin.Engine, logger *logrus.Logger) {
	router.Use(middleware.RequestID())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())

	// Request size limit (1MB)
	router.Use(middleware.RequestSizeLimit(1 << 20))
	router.Use(middleware.ContentTypeValidation("application/json"))
	router.Use(middleware.StructuredLogger(logger))
	router.Use(middleware.PerformanceMonitor(logger, 2*time.Second))
	router.Use(middleware.AuditLogger(logger))
}

// NewRouter builds the complete gin engine
func NewRouter(config *RouterConfig) *gin.Engine {
	router := gin.New()
	SetupMiddleware(router, config.Logger)
	router.Use(middleware.RequestValidation())
	SetupRoutes(router, config)
	return router
}

// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthCheck
// @Failure 503 {object} models.HealthCheck
// @Router /health [get]
func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := models.HealthCheck{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Version:   Version,
			Services:  map[string]string{"database": "healthy"},
		}
		status := http.StatusOK

		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				health.Status = "unhealthy"
				health.Services["database"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		c.JSON(status, health)
	}
}
