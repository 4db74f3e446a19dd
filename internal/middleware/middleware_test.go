package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newAuthService() *AuthService {
	return NewAuthService(&AuthConfig{JWTSecret: "test-secret"})
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	auth := newAuthService()

	token, err := auth.GenerateToken("user-1", "tenant-1", []string{string(RoleOperator)})
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "bol-invoice-api", claims.Issuer)

	other := NewAuthService(&AuthConfig{JWTSecret: "other-secret"})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	expired := NewAuthService(&AuthConfig{JWTSecret: "test-secret", TokenDuration: -time.Minute})
	stale, err := expired.GenerateToken("user-1", "tenant-1", nil)
	require.NoError(t, err)
	_, err = auth.ValidateToken(stale)
	assert.Error(t, err)
}

func TestAuthentication(t *testing.T) {
	auth := newAuthService()
	token, err := auth.GenerateToken("user-1", "tenant-1", []string{string(RoleAdmin)})
	require.NoError(t, err)

	router := gin.New()
	router.Use(Authentication(auth, quietLogger()))
	router.GET("/whoami", func(c *gin.Context) {
		userID, tenantID, ok := GetUserFromContext(c)
		assert.True(t, ok)
		c.String(http.StatusOK, userID+"@"+tenantID)
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "valid token", header: "Bearer " + token, status: http.StatusOK, body: "user-1@tenant-1"},
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestAuthorization(t *testing.T) {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(RolesKey, strings.Split(c.GetHeader("X-Roles"), ","))
		c.Next()
	})
	router.DELETE("/rules", Authorization(quietLogger(), RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for roles, status := range map[string]int{"admin": http.StatusNoContent, "viewer,operator": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodDelete, "/rules", nil)
		req.Header.Set("X-Roles", roles)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, status, w.Code, roles)
	}
}

func TestResolveTenant(t *testing.T) {
	tests := []struct {
		name     string
		claimed  string
		explicit string
		want     string
		wantErr  error
	}{
		{name: "claim only", claimed: "tenant-1", want: "tenant-1"},
		{name: "claim and matching explicit", claimed: "tenant-1", explicit: "tenant-1", want: "tenant-1"},
		{name: "claim and conflicting explicit", claimed: "tenant-1", explicit: "tenant-2", wantErr: ErrTenantMismatch},
		{name: "explicit only", explicit: " tenant-2 ", want: "tenant-2"},
		{name: "neither", wantErr: ErrTenantRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			if tt.claimed != "" {
				c.Set(TenantIDKey, tt.claimed)
			}

			got, err := ResolveTenant(c, tt.explicit)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimiter_PerTenant(t *testing.T) {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if tenant := c.GetHeader("X-Tenant"); tenant != "" {
			c.Set(TenantIDKey, tenant)
		}
		c.Next()
	})
	router.Use(RateLimiter(quietLogger(), 0.001, 2))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(tenant string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Tenant", tenant)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("tenant-1"))
	assert.Equal(t, http.StatusOK, call("tenant-1"))
	assert.Equal(t, http.StatusTooManyRequests, call("tenant-1"))
	assert.Equal(t, http.StatusOK, call("tenant-2"))
}

func TestRequestValidation(t *testing.T) {
	router := gin.New()
	router.Use(RequestValidation())
	router.GET("/invoices", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/invoices/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		path   string
		status int
	}{
		{path: "/invoices?page=2&limit=50", status: http.StatusOK},
		{path: "/invoices?limit=500", status: http.StatusBadRequest},
		{path: "/invoices?page=0", status: http.StatusBadRequest},
		{path: "/invoices?b2b=maybe", status: http.StatusBadRequest},
		{path: "/invoices?country=nl", status: http.StatusOK},
		{path: "/invoices?country=NLD", status: http.StatusBadRequest},
		{path: "/invoices/6f1c2d4e-8a0b-4c3d-9e5f-1a2b3c4d5e6f", status: http.StatusOK},
		{path: "/invoices/42", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.status, w.Code, tt.path)
	}
}

func TestContentTypeValidation(t *testing.T) {
	router := gin.New()
	router.Use(ContentTypeValidation())
	router.POST("/invoices", func(c *gin.Context) { c.Status(http.StatusCreated) })
	router.DELETE("/vat-rules/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(`a=b`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/vat-rules/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDs(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), CorrelationID(), StructuredLogger(quietLogger()), AuditLogger(quietLogger()))
	router.POST("/invoices", func(c *gin.Context) {
		c.String(http.StatusCreated, c.GetString(RequestIDKey))
	})

	req := httptest.NewRequest(http.MethodPost, "/invoices", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Recovery(quietLogger()))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}
