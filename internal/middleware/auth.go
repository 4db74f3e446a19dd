package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// UserRole represents user roles in the system
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
	RoleViewer   UserRole = "viewer"
)

// Context keys set by Authentication
const (
	UserIDKey   = "user_id"
	TenantIDKey = "tenant_id"
	RolesKey    = "roles"
	ClaimsKey   = "claims"
)

var (
	// ErrTenantRequired is returned when a request names no tenant and carries no tenant claim
	ErrTenantRequired = errors.New("tenantId is required")

	// ErrTenantMismatch is returned when an explicit tenant differs from the token's tenant
	ErrTenantMismatch = errors.New("tenantId does not match the authenticated tenant")
)

// Claims represents JWT claims
type Claims struct {
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret     string
	TokenDuration time.Duration
	Issuer        string
}

// AuthService issues and validates tenant-scoped tokens
type AuthService struct {
	config *AuthConfig
}

// NewAuthService creates a new authentication service
func NewAuthService(config *AuthConfig) *AuthService {
	if config.TokenDuration == 0 {
		config.TokenDuration = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "bol-invoice-api"
	}
	return &AuthService{config: config}
}

// GenerateToken generates a JWT for a user acting on behalf of a tenant
func (a *AuthService) GenerateToken(userID, tenantID string, roles []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		TenantID: tenantID,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    a.config.Issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(a.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims
func (a *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.config.JWTSecret), nil
	}, jwt.WithIssuer(a.config.Issuer))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// Authentication middleware that validates JWT tokens
func Authentication(authService *AuthService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Unauthorized", "Authorization header is required")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			abortWithError(c, http.StatusUnauthorized, "Unauthorized", "Invalid authorization header format. Expected: Bearer <token>")
			return
		}

		claims, err := authService.ValidateToken(tokenParts[1])
		if err != nil {
			logger.WithFields(logrus.Fields{
				"error": err.Error(),
				"path":  c.Request.URL.Path,
			}).Warn("Token validation failed")

			abortWithError(c, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(TenantIDKey, claims.TenantID)
		c.Set(RolesKey, claims.Roles)
		c.Set(ClaimsKey, claims)

		logger.WithFields(logrus.Fields{
			"user_id":   claims.UserID,
			"tenant_id": claims.TenantID,
			"path":      c.Request.URL.Path,
		}).Debug("User authenticated successfully")

		c.Next()
	}
}

// Authorization middleware that checks user roles
func Authorization(logger *logrus.Logger, requiredRoles ...UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(requiredRoles) == 0 {
			c.Next()
			return
		}

		userRoles := c.GetStringSlice(RolesKey)
		for _, required := range requiredRoles {
			if slices.Contains(userRoles, string(required)) {
				c.Next()
				return
			}
		}

		logger.WithFields(logrus.Fields{
			"user_id":        c.GetString(UserIDKey),
			"user_roles":     userRoles,
			"required_roles": requiredRoles,
			"path":           c.Request.URL.Path,
		}).Warn("Authorization failed - insufficient permissions")

		abortWithError(c, http.StatusForbidden, "Forbidden", "Insufficient permissions")
	}
}

// GetUserFromContext extracts the authenticated user and tenant from gin context
func GetUserFromContext(c *gin.Context) (userID, tenantID string, ok bool) {
	userID = c.GetString(UserIDKey)
	if userID == "" {
		return "", "", false
	}
	return userID, c.GetString(TenantIDKey), true
}

// ResolveTenant picks the tenant a request acts on.
// A tenant claim wins and an explicit tenant must match it; without a claim the explicit tenant is required.
func ResolveTenant(c *gin.Context, explicit string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	claimed := c.GetString(TenantIDKey)

	if claimed != "" {
		if explicit != "" && explicit != claimed {
			return "", ErrTenantMismatch
		}
		return claimed, nil
	}

	if explicit == "" {
		return "", ErrTenantRequired
	}
	return explicit, nil
}

// HasRole checks if the current user has a specific role
func HasRole(c *gin.Context, role UserRole) bool {
	return slices.Contains(c.GetStringSlice(RolesKey), string(role))
}
