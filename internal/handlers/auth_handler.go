package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bol-invoice-api/internal/middleware"
)

// AuthHandler issues development tokens and reports the authenticated caller
type AuthHandler struct {
	authService   *middleware.AuthService
	tokenDuration time.Duration
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *middleware.AuthService, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		tokenDuration: tokenDuration,
	}
}

// DevTokenRequest asks for a token scoped to a tenant
type DevTokenRequest struct {
	UserID   string   `json:"userId"`
	TenantID string   `json:"tenantId" binding:"required"`
	Roles    []string `json:"roles"`
}

// TokenResponse carries an issued token
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	TenantID  string    `json:"tenantId"`
	Roles     []string  `json:"roles"`
}

// CurrentUser describes the authenticated caller
type CurrentUser struct {
	UserID   string   `json:"userId"`
	TenantID string   `json:"tenantId"`
	Roles    []string `json:"roles"`
}

// @Summary Issue a development token
// @Description Development only. Issues a JWT for the given tenant.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body DevTokenRequest true "Token request"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /dev/token [post]
func (h *AuthHandler) IssueDevToken(c *gin.Context) {
	var req DevTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if req.UserID == "" {
		req.UserID = "dev-user"
	}
	if len(req.Roles) == 0 {
		req.Roles = []string{string(middleware.RoleOperator)}
	}

	token, err := h.authService.GenerateToken(req.UserID, req.TenantID, req.Roles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, middleware.NewErrorResponse(c, "Token generation failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokenDuration),
		UserID:    req.UserID,
		TenantID:  req.TenantID,
		Roles:     req.Roles,
	})
}

// @Summary Get current user
// @Tags auth
// @Produce json
// @Success 200 {object} CurrentUser
// @Failure 401 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, tenantID, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, middleware.NewErrorResponse(c, "Unauthorized", "User not authenticated"))
		return
	}

	c.JSON(http.StatusOK, CurrentUser{
		UserID:   userID,
		TenantID: tenantID,
		Roles:    c.GetStringSlice(middleware.RolesKey),
	})
}
