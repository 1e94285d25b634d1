package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campusdirectory/facility-api/internal/database"
	"github.com/campusdirectory/facility-api/internal/utils"
	"github.com/google/uuid"
)

// AuditService handles audit logging for security events
type AuditService struct {
	db database.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB) *AuditService {
	return &AuditService{
		db: db,
	}
}

// RequestMeta identifies the client behind an audited request
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuditEvent represents a security event to be logged
type AuditEvent struct {
	UserID     *uuid.UUID // nil for pre-authentication events
	Action     string     // e.g. "register", "login", "logout", "password_reset"
	EntityType string     // e.g. "user", "rate_limit", "facility"
	EntityID   *uuid.UUID
	Meta       RequestMeta
	Details    map[string]interface{}
}

// AuditRecord is one stored audit row
type AuditRecord struct {
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	IPAddress  string          `db:"ip_address" json:"ip_address"`
	UserAgent  string          `db:"user_agent" json:"user_agent"`
	Details    json.RawMessage `db:"details" json:"details"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// LogRegister logs a new account
func (s *AuditService) LogRegister(ctx context.Context, userID uuid.UUID, role string, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     "register",
		EntityType: "user",
		EntityID:   &userID,
		Meta:       meta,
		Details:    map[string]interface{}{"role": role},
	})
}

// LogLogin logs a login attempt. userID is nil when the email is unknown.
func (s *AuditService) LogLogin(ctx context.Context, userID *uuid.UUID, email string, success bool, meta RequestMeta) error {
	action := "login_failed"
	if success {
		action = "login"
	}

	return s.logEvent(ctx, AuditEvent{
		UserID:     userID,
		Action:     action,
		EntityType: "user",
		EntityID:   userID,
		Meta:       meta,
		Details:    map[string]interface{}{"email": email, "success": success},
	})
}

// LogLogout logs a logout event
func (s *AuditService) LogLogout(ctx context.Context, userID uuid.UUID, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     "logout",
		EntityType: "user",
		EntityID:   &userID,
		Meta:       meta,
	})
}

// LogPasswordResetRequest logs a forgot-password request
func (s *AuditService) LogPasswordResetRequest(ctx context.Context, email string, delivered bool, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		Action:     "password_reset_request",
		EntityType: "user",
		Meta:       meta,
		Details:    map[string]interface{}{"email": email, "delivered": delivered},
	})
}

// LogPasswordChange logs a password update or completed reset
func (s *AuditService) LogPasswordChange(ctx context.Context, userID uuid.UUID, viaReset bool, meta RequestMeta) error {
	action := "password_update"
	if viaReset {
		action = "password_reset"
	}

	return s.logEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     action,
		EntityType: "user",
		EntityID:   &userID,
		Meta:       meta,
	})
}

// LogRateLimitViolation logs a rate limit violation event
func (s *AuditService) LogRateLimitViolation(ctx context.Context, identifier, limitType string, retryAfter time.Time, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		Action:     "rate_limit_violation",
		EntityType: "rate_limit",
		Meta:       meta,
		Details: map[string]interface{}{
			"identifier":  identifier,
			"limit_type":  limitType,
			"retry_after": retryAfter,
		},
	})
}

// LogResourceDelete logs removal of a facility, room or review
func (s *AuditService) LogResourceDelete(ctx context.Context, userID uuid.UUID, kind string, id uuid.UUID, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     kind + "_delete",
		EntityType: kind,
		EntityID:   &id,
		Meta:       meta,
	})
}

// logEvent writes to the audit_logs table. Device info parsed from the user
// agent is merged into details.
func (s *AuditService) logEvent(ctx context.Context, event AuditEvent) error {
	details := make(map[string]interface{}, len(event.Details)+1)
	for k, v := range event.Details {
		details[k] = v
	}
	details["device_info"] = utils.ParseUserAgent(event.Meta.UserAgent)

	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err = s.db.ExecContext(ctx, query,
		nullableUUID(event.UserID),
		event.Action,
		event.EntityType,
		nullableUUID(event.EntityID),
		event.Meta.IPAddress,
		event.Meta.UserAgent,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// GetRecentEvents retrieves recent audit events for a user
func (s *AuditService) GetRecentEvents(ctx context.Context, userID uuid.UUID, limit int) ([]AuditRecord, error) {
	events := []AuditRecord{}

	query := `
		SELECT action, entity_type, ip_address, user_agent, details, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	if err := s.db.SelectContext(ctx, &events, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}

	return events, nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
