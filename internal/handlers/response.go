package handlers

import (
	"errors"
	"net/http"

	"github.com/campusdirectory/facility-api/internal/middleware"
	"github.com/campusdirectory/facility-api/pkg/apperror"
	"github.com/campusdirectory/facility-api/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// DataResponse wraps a single resource
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// CountResponse wraps an unpaginated list
type CountResponse struct {
	Success bool        `json:"success"`
	Count   int         `json:"count"`
	Data    interface{} `json:"data"`
}

// respondError writes err as {success:false, error} with its mapped status.
// Server errors are logged with whatever fields the error carries.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := apperror.StatusCode(err)

	if status >= http.StatusInternalServerError {
		entry := logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Fields != nil {
			entry = entry.WithFields(appErr.Fields)
		}
		if userCtx, ok := middleware.GetUserContext(c); ok {
			entry = entry.WithField("user_id", userCtx.UserID)
		}
		entry.Error("Request failed")
	}

	c.JSON(status, ErrorResponse{
		Success: false,
		Error:   apperror.PublicMessage(err),
	})
}

// bindError wraps a JSON binding failure as a validation error
func bindError(err error) error {
	return apperror.New(apperror.KindValidationFailed, validator.FormatValidationError(err), err)
}

// parseID reads a uuid path parameter. A malformed id cannot name a
// resource, so it is reported as not found.
func parseID(c *gin.Context, param, what string) (uuid.UUID, error) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.NotFound("No %s with the id of %s", what, raw)
	}
	return id, nil
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, DataResponse{Success: true, Data: data})
}
