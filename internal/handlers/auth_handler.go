package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/campusdirectory/facility-api/internal/middleware"
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/internal/services"
	"github.com/campusdirectory/facility-api/internal/utils"
	"github.com/campusdirectory/facility-api/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CookieConfig controls the session cookie
type CookieConfig struct {
	ExpireDays int
	Secure     bool
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService      *services.AuthService
	rateLimitService *services.RateLimitService
	audit            auditLogger
	cookie           CookieConfig
	logger           *logrus.Logger
}

// NewAuthHandler creates a new auth handler. auditService may be nil.
func NewAuthHandler(
	authService *services.AuthService,
	rateLimitService *services.RateLimitService,
	auditService *services.AuditService,
	cookie CookieConfig,
	logger *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:      authService,
		rateLimitService: rateLimitService,
		audit:            auditLogger{service: auditService, logger: logger},
		cookie:           cookie,
		logger:           logger,
	}
}

// TokenResponse is returned whenever a session is issued
type TokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit.safeLogRegister(c, result.User.ID, result.User.Role)
	h.sendToken(c, http.StatusOK, result)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginInput
	// An unreadable body is treated as missing credentials
	_ = c.ShouldBindJSON(&req)

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		if apperror.Is(err, apperror.KindUnauthenticated) {
			var userID *uuid.UUID
			if result != nil && result.User != nil {
				userID = &result.User.ID
			}
			h.audit.safeLogLogin(c, userID, req.Email, false)
		}
		respondError(c, h.logger, err)
		return
	}

	h.audit.safeLogLogin(c, &result.User.ID, result.User.Email, true)
	h.sendToken(c, http.StatusOK, result)
}

// Logout handles GET /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if userCtx, ok := middleware.GetUserContext(c); ok {
		h.audit.safeLogLogout(c, userCtx.UserID)
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "none", 10, "/", "", h.cookie.Secure, true)
	respondData(c, http.StatusOK, gin.H{})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	user, err := h.authService.Me(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondData(c, http.StatusOK, user)
}

// UpdateDetails handles PUT /api/v1/auth/updatedetails
func (h *AuthHandler) UpdateDetails(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	var req models.UpdateDetailsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	user, err := h.authService.UpdateDetails(c.Request.Context(), userCtx.UserID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondData(c, http.StatusOK, user)
}

// UpdatePassword handles PUT /api/v1/auth/updatepassword
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	var req models.UpdatePasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	result, err := h.authService.UpdatePassword(c.Request.Context(), userCtx.UserID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit.safeLogPasswordChange(c, result.User.ID, false)
	h.sendToken(c, http.StatusOK, result)
}

// ForgotPassword handles POST /api/v1/auth/forgotpassword
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	clientIP := utils.GetRealIP(c)
	ctx := c.Request.Context()

	if err := h.rateLimitService.CheckResetRateLimit(ctx, email, clientIP); err != nil {
		var rateLimitErr *services.RateLimitError
		if errors.As(err, &rateLimitErr) {
			h.audit.safeLogRateLimitViolation(c, email, rateLimitErr.Type, rateLimitErr.RetryAfter)
			c.Header("Retry-After", rateLimitErr.RetryAfter.UTC().Format(http.TimeFormat))
		}
		respondError(c, h.logger, err)
		return
	}

	if err := h.rateLimitService.RecordResetRequest(ctx, email, clientIP); err != nil {
		h.logger.WithError(err).Warn("Failed to record password reset request")
	}

	err := h.authService.ForgotPassword(ctx, email)
	if err != nil && !apperror.Is(err, apperror.KindEmailDeliveryFailed) {
		respondError(c, h.logger, err)
		return
	}

	h.audit.safeLogPasswordResetRequest(c, email, err == nil)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondData(c, http.StatusOK, "Email Sent")
}

// ResetPassword handles PUT /api/v1/auth/resetpassword/:resettoken
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	result, err := h.authService.ResetPassword(c.Request.Context(), c.Param("resettoken"), req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit.safeLogPasswordChange(c, result.User.ID, true)
	h.sendToken(c, http.StatusOK, result)
}

// sendToken sets the session cookie and writes {success, token}
func (h *AuthHandler) sendToken(c *gin.Context, status int, result *services.AuthResult) {
	maxAge := int((time.Duration(h.cookie.ExpireDays) * 24 * time.Hour).Seconds())

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, result.Token, maxAge, "/", "", h.cookie.Secure, true)
	c.JSON(status, TokenResponse{Success: true, Token: result.Token})
}
