package handlers

import (
	"time"

	"github.com/campusdirectory/facility-api/internal/services"
	"github.com/campusdirectory/facility-api/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// auditLogger writes security events without ever failing the request.
// A nil service disables auditing.
type auditLogger struct {
	service *services.AuditService
	logger  *logrus.Logger
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
}

func (a auditLogger) logError(operation string, err error) {
	if err != nil {
		a.logger.WithError(err).WithField("operation", operation).Warn("Audit write failed")
	}
}

func (a auditLogger) safeLogRegister(c *gin.Context, userID uuid.UUID, role string) {
	if a.service == nil {
		return
	}
	a.logError("LogRegister", a.service.LogRegister(c.Request.Context(), userID, role, requestMeta(c)))
}

func (a auditLogger) safeLogLogin(c *gin.Context, userID *uuid.UUID, email string, success bool) {
	if a.service == nil {
		return
	}
	a.logError("LogLogin", a.service.LogLogin(c.Request.Context(), userID, email, success, requestMeta(c)))
}

func (a auditLogger) safeLogLogout(c *gin.Context, userID uuid.UUID) {
	if a.service == nil {
		return
	}
	a.logError("LogLogout", a.service.LogLogout(c.Request.Context(), userID, requestMeta(c)))
}

func (a auditLogger) safeLogPasswordResetRequest(c *gin.Context, email string, delivered bool) {
	if a.service == nil {
		return
	}
	a.logError("LogPasswordResetRequest", a.service.LogPasswordResetRequest(c.Request.Context(), email, delivered, requestMeta(c)))
}

func (a auditLogger) safeLogPasswordChange(c *gin.Context, userID uuid.UUID, viaReset bool) {
	if a.service == nil {
		return
	}
	a.logError("LogPasswordChange", a.service.LogPasswordChange(c.Request.Context(), userID, viaReset, requestMeta(c)))
}

func (a auditLogger) safeLogRateLimitViolation(c *gin.Context, identifier, limitType string, retryAfter time.Time) {
	if a.service == nil {
		return
	}
	a.logError("LogRateLimitViolation", a.service.LogRateLimitViolation(c.Request.Context(), identifier, limitType, retryAfter, requestMeta(c)))
}

func (a auditLogger) safeLogResourceDelete(c *gin.Context, userID uuid.UUID, kind string, id uuid.UUID) {
	if a.service == nil {
		return
	}
	a.logError("LogResourceDelete", a.service.LogResourceDelete(c.Request.Context(), userID, kind, id, requestMeta(c)))
}
