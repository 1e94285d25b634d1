package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindForbidden           Kind = "FORBIDDEN"
	KindUnauthenticated     Kind = "UNAUTHENTICATED"
	KindValidationFailed    Kind = "VALIDATION_FAILED"
	KindConflict            Kind = "CONFLICT"
	KindInvalidMediaType    Kind = "INVALID_MEDIA_TYPE"
	KindFileTooLarge        Kind = "FILE_TOO_LARGE"
	KindTooManyPhotos       Kind = "TOO_MANY_PHOTOS"
	KindDuplicateFilename   Kind = "DUPLICATE_FILENAME"
	KindUploadFailed        Kind = "UPLOAD_FAILED"
	KindEmailDeliveryFailed Kind = "EMAIL_DELIVERY_FAILED"
	KindRateLimited         Kind = "RATE_LIMITED"
	KindInternal            Kind = "INTERNAL"
)

// AppError is an error with a kind that maps to an HTTP status code
type AppError struct {
	Kind    Kind
	Message string
	Err     error
	// Fields carries identifiers for logging (principal, resource, action)
	Fields map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// With attaches a logging field and returns the same error
func (e *AppError) With(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New creates a new AppError
func New(kind Kind, message string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func NotFound(format string, args ...interface{}) *AppError {
	return New(KindNotFound, fmt.Sprintf(format, args...), nil)
}

func Forbidden(format string, args ...interface{}) *AppError {
	return New(KindForbidden, fmt.Sprintf(format, args...), nil)
}

func Unauthenticated(message string) *AppError {
	return New(KindUnauthenticated, message, nil)
}

func Validation(message string) *AppError {
	return New(KindValidationFailed, message, nil)
}

func Conflict(message string, err error) *AppError {
	return New(KindConflict, message, err)
}

func Internal(message string, err error) *AppError {
	return New(KindInternal, message, err)
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// StatusCode maps an error to its HTTP status code
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindValidationFailed, KindConflict,
		KindInvalidMediaType, KindFileTooLarge, KindTooManyPhotos, KindDuplicateFilename:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show a client. Internal errors
// never leak their wrapped cause.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Server Error"
}
