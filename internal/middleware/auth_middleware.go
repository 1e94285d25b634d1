package middleware

import (
	"net/http"
	"strings"

	"github.com/campusdirectory/facility-api/internal/policy"
	"github.com/campusdirectory/facility-api/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserContextKey is the key used to store user information in Gin context
const UserContextKey = "user"

// TokenCookie is the cookie carrying the session token
const TokenCookie = "token"

const notAuthorized = "Not authorized to access this route"

// UserContext represents the authenticated user's information
type UserContext struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

// Principal converts the context into the caller passed to services
func (u UserContext) Principal() *policy.Principal {
	return &policy.Principal{ID: u.UserID, Role: u.Role}
}

// AuthMiddleware validates the session token from the Authorization header,
// falling back to the token cookie
func AuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			logger.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"ip":   c.ClientIP(),
			}).Debug("Auth failed: missing token")
			abortUnauthorized(c)
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"ip":   c.ClientIP(),
			}).Debug("Auth failed: invalid token")
			abortUnauthorized(c)
			return
		}

		c.Set(UserContextKey, UserContext{
			UserID: claims.UserID,
			Role:   claims.Role,
		})

		c.Next()
	}
}

// OptionalAuth sets the user context when a valid token is present and lets
// anonymous requests through
func OptionalAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractToken(c); tokenString != "" {
			if claims, err := jwtService.ValidateToken(tokenString); err == nil {
				c.Set(UserContextKey, UserContext{UserID: claims.UserID, Role: claims.Role})
			}
		}
		c.Next()
	}
}

// RequireRole creates a middleware that checks the user has one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			abortUnauthorized(c)
			return
		}

		for _, role := range roles {
			if userCtx.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "User role " + userCtx.Role + " is not authorized to access this route",
		})
	}
}

// GetUserContext retrieves the user context from Gin context
func GetUserContext(c *gin.Context) (UserContext, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return UserContext{}, false
	}

	userCtx, ok := value.(UserContext)
	if !ok {
		return UserContext{}, false
	}

	return userCtx, true
}

// GetPrincipal returns the caller, or nil for an anonymous request
func GetPrincipal(c *gin.Context) *policy.Principal {
	userCtx, ok := GetUserContext(c)
	if !ok {
		return nil
	}
	return userCtx.Principal()
}

func extractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	// "none" is what logout leaves behind
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "none" {
		return cookie
	}
	return ""
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   notAuthorized,
	})
}
