package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"bol-invoice-api/internal/models"
)

// ValidationError represents a validation error with field details
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	Details          interface{}       `json:"details,omitempty"`
	ValidationErrors []ValidationError `json:"validationErrors,omitempty"`
	RequestID        string            `json:"requestId,omitempty"`
	Timestamp        string            `json:"timestamp"`
}

// NewErrorResponse builds an error response carrying the request id
func NewErrorResponse(c *gin.Context, errType, message string) ErrorResponse {
	return ErrorResponse{
		Error:     errType,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func abortWithError(c *gin.Context, status int, errType, message string) {
	c.AbortWithStatusJSON(status, NewErrorResponse(c, errType, message))
}

// RequestValidation middleware for validating common request parameters
func RequestValidation() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := validateQueryParams(c); err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
			return
		}

		if err := validatePathParams(c); err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid path parameters", err.Error())
			return
		}

		c.Next()
	}
}

// RateLimiter throttles requests per tenant, or per client IP for unauthenticated callers
func RateLimiter(logger *logrus.Logger, requestsPerSecond float64, burstSize int) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize)
			limiters[key] = limiter
		}
		return limiter
	}

	return func(c *gin.Context) {
		key := c.GetString(TenantIDKey)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		if !limiterFor(key).Allow() {
			logger.WithFields(logrus.Fields{
				"client_ip": c.ClientIP(),
				"tenant_id": c.GetString(TenantIDKey),
				"path":      c.Request.URL.Path,
				"user_id":   c.GetString(UserIDKey),
			}).Warn("Rate limit exceeded")

			c.Header("Retry-After", "1")
			abortWithError(c, http.StatusTooManyRequests, "Rate limit exceeded",
				fmt.Sprintf("Too many requests. Limit: %.1f requests per second", requestsPerSecond))
			return
		}
		c.Next()
	}
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Server", "")
		c.Next()
	}
}

// ContentTypeValidation validates the content type of requests carrying a body
func ContentTypeValidation(allowedTypes ...string) gin.HandlerFunc {
	if len(allowedTypes) == 0 {
		allowedTypes = []string{"application/json"}
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead ||
			c.Request.Method == http.MethodOptions || c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		contentType := c.GetHeader("Content-Type")
		if contentType == "" {
			abortWithError(c, http.StatusBadRequest, "Missing Content-Type header", "Content-Type header is required")
			return
		}

		mainType := strings.TrimSpace(strings.Split(contentType, ";")[0])
		for _, allowedType := range allowedTypes {
			if mainType == allowedType {
				c.Next()
				return
			}
		}

		abortWithError(c, http.StatusUnsupportedMediaType, "Unsupported Content-Type",
			fmt.Sprintf("Content-Type '%s' is not supported. Allowed types: %v", mainType, allowedTypes))
	}
}

// RequestSizeLimit limits the size of request bodies
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			abortWithError(c, http.StatusRequestEntityTooLarge, "Request too large",
				fmt.Sprintf("Request body size (%d bytes) exceeds maximum allowed size (%d bytes)", c.Request.ContentLength, maxSize))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

func validateQueryParams(c *gin.Context) error {
	if limit := c.Query("limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err != nil || val < 1 || val > models.MaxPageLimit {
			return fmt.Errorf("invalid limit parameter: must be an integer between 1 and %d", models.MaxPageLimit)
		}
	}

	if page := c.Query("page"); page != "" {
		if val, err := strconv.Atoi(page); err != nil || val < 1 {
			return fmt.Errorf("invalid page parameter: must be a positive integer")
		}
	}

	for _, param := range []string{"b2b", "activeOnly"} {
		if value := c.Query(param); value != "" {
			if _, err := strconv.ParseBool(value); err != nil {
				return fmt.Errorf("invalid %s parameter: must be a boolean (true/false)", param)
			}
		}
	}

	for _, param := range []string{"country", "sellerCountry"} {
		if value := c.Query(param); value != "" && !models.IsValidCountryCode(strings.ToUpper(value)) {
			return fmt.Errorf("invalid %s parameter: must be an ISO 3166-1 alpha-2 code", param)
		}
	}

	return nil
}

func validatePathParams(c *gin.Context) error {
	if value := c.Param("id"); value != "" {
		if _, err := uuid.Parse(value); err != nil {
			return fmt.Errorf("invalid id parameter: must be a valid UUID")
		}
	}
	return nil
}

// FormatValidationErrors turns validator errors into response entries
func FormatValidationErrors(validationErrors validator.ValidationErrors) []ValidationError {
	var errors []ValidationError

	for _, err := range validationErrors {
		var message string

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "hexcolor":
			message = fmt.Sprintf("%s must be a hex color", err.Field())
		default:
			message = fmt.Sprintf("%s is invalid", err.Field())
		}

		errors = append(errors, ValidationError{
			Field:   err.Field(),
			Tag:     err.Tag(),
			Value:   fmt.Sprintf("%v", err.Value()),
			Message: message,
		})
	}

	return errors
}
