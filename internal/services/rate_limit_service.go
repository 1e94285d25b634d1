package services

import (
	"context"
	"fmt"
	"time"

	"github.com/campusdirectory/facility-api/internal/database"
	"github.com/campusdirectory/facility-api/pkg/apperror"
)

// Identifier types recorded in password_reset_requests
const (
	identifierEmail = "email"
	identifierIP    = "ip"
)

// RateLimitService throttles forgot-password requests per email and per IP
type RateLimitService struct {
	db     database.DB
	config RateLimitConfig
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxEmailRequests int           // Max reset requests per email
	EmailWindow      time.Duration // Time window for email rate limit
	MaxIPRequests    int           // Max reset requests per IP
	IPWindow         time.Duration // Time window for IP rate limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxEmailRequests: 3,                // 3 requests
		EmailWindow:      15 * time.Minute, // per 15 minutes
		MaxIPRequests:    10,               // 10 requests
		IPWindow:         1 * time.Hour,    // per hour
	}
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB, config RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		db:     db,
		config: config,
	}
}

// RateLimitError represents a rate limit exceeded error. It unwraps to a
// RateLimited AppError so the HTTP layer maps it to 429.
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "email" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func (e *RateLimitError) Unwrap() error {
	return apperror.New(apperror.KindRateLimited, e.Message, nil)
}

type requestWindow struct {
	Count       int       `db:"count"`
	LastRequest time.Time `db:"last_request"`
}

// CheckResetRateLimit checks if an email or IP has exceeded rate limits
func (s *RateLimitService) CheckResetRateLimit(ctx context.Context, email, ip string) error {
	// Check email-based rate limit
	if email != "" {
		w, err := s.getRequestCount(ctx, email, identifierEmail, s.config.EmailWindow)
		if err != nil {
			return fmt.Errorf("failed to check email rate limit: %w", err)
		}

		if w.Count >= s.config.MaxEmailRequests {
			retryAfter := w.LastRequest.Add(s.config.EmailWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many password reset requests for this email. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       identifierEmail,
			}
		}
	}

	// Check IP-based rate limit
	if ip != "" {
		w, err := s.getRequestCount(ctx, ip, identifierIP, s.config.IPWindow)
		if err != nil {
			return fmt.Errorf("failed to check IP rate limit: %w", err)
		}

		if w.Count >= s.config.MaxIPRequests {
			retryAfter := w.LastRequest.Add(s.config.IPWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many password reset requests from this IP address. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       identifierIP,
			}
		}
	}

	return nil
}

// getRequestCount gets the number of requests within the time window
func (s *RateLimitService) getRequestCount(ctx context.Context, identifier, identifierType string, window time.Duration) (requestWindow, error) {
	windowStart := time.Now().Add(-window)

	query := `
		SELECT COUNT(*) AS count, COALESCE(MAX(created_at), NOW()) AS last_request
		FROM password_reset_requests
		WHERE identifier = $1
		  AND identifier_type = $2
		  AND created_at > $3
	`

	var w requestWindow
	if err := s.db.GetContext(ctx, &w, query, identifier, identifierType, windowStart); err != nil {
		return requestWindow{}, err
	}

	return w, nil
}

// RecordResetRequest records a forgot-password request for rate limiting
func (s *RateLimitService) RecordResetRequest(ctx context.Context, email, ip string) error {
	if email != "" {
		if err := s.recordRequest(ctx, email, identifierEmail); err != nil {
			return fmt.Errorf("failed to record email request: %w", err)
		}
	}

	if ip != "" {
		if err := s.recordRequest(ctx, ip, identifierIP); err != nil {
			return fmt.Errorf("failed to record IP request: %w", err)
		}
	}

	return nil
}

func (s *RateLimitService) recordRequest(ctx context.Context, identifier, identifierType string) error {
	query := `
		INSERT INTO password_reset_requests (identifier, identifier_type, created_at)
		VALUES ($1, $2, NOW())
	`

	_, err := s.db.ExecContext(ctx, query, identifier, identifierType)
	return err
}

// CleanupExpiredRateLimits removes records older than the longest window
func (s *RateLimitService) CleanupExpiredRateLimits(ctx context.Context) (int64, error) {
	maxWindow := s.config.IPWindow
	if s.config.EmailWindow > maxWindow {
		maxWindow = s.config.EmailWindow
	}

	cutoffTime := time.Now().Add(-maxWindow)

	result, err := s.db.ExecContext(ctx, `DELETE FROM password_reset_requests WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// IsRateLimited checks if an identifier is currently rate limited
func (s *RateLimitService) IsRateLimited(ctx context.Context, identifier, identifierType string) (bool, time.Time, error) {
	window := s.config.EmailWindow
	maxRequests := s.config.MaxEmailRequests
	if identifierType == identifierIP {
		window = s.config.IPWindow
		maxRequests = s.config.MaxIPRequests
	}

	w, err := s.getRequestCount(ctx, identifier, identifierType, window)
	if err != nil {
		return false, time.Time{}, err
	}

	if w.Count >= maxRequests {
		return true, w.LastRequest.Add(window), nil
	}

	return false, time.Time{}, nil
}
