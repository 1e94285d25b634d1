package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/pkg/apperror"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const userColumns = `id, name, email, password_hash, role,
		       reset_password_token, reset_password_expire,
		       created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// Create inserts a new user. A taken email is a Conflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperror.Conflict("Duplicate field value entered", err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &user, nil
}

// GetByEmail retrieves a user by email address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// GetByResetToken finds the user holding an unexpired reset token hash
func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	var user models.User

	query := `SELECT ` + userColumns + `
		FROM users
		WHERE reset_password_token = $1
		  AND reset_password_expire > $2`

	err := r.db.GetContext(ctx, &user, query, tokenHash, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}

	return &user, nil
}

// UpdateDetails changes name and email
func (r *UserRepository) UpdateDetails(ctx context.Context, id uuid.UUID, name, email string) error {
	query := `
		UPDATE users
		SET name = $1,
		    email = $2,
		    updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query, name, email, time.Now(), id)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperror.Conflict("Duplicate field value entered", err)
		}
		return fmt.Errorf("failed to update user details: %w", err)
	}

	return requireAffected(result, "user", id)
}

// UpdatePassword stores a new hash and clears any pending reset token
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1,
		    reset_password_token = NULL,
		    reset_password_expire = NULL,
		    updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return requireAffected(result, "user", id)
}

// SetResetToken stores a reset token hash and its expiry
func (r *UserRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expire time.Time) error {
	query := `
		UPDATE users
		SET reset_password_token = $1,
		    reset_password_expire = $2,
		    updated_at = $3
		WHERE id = $4
	`

	_, err := r.db.ExecContext(ctx, query, tokenHash, expire, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return nil
}

// ClearResetToken removes any pending reset token
func (r *UserRepository) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET reset_password_token = NULL,
		    reset_password_expire = NULL
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}
	return nil
}

// PurgeExpiredResetTokens clears reset tokens that expired before now
func (r *UserRepository) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET reset_password_token = NULL,
		    reset_password_expire = NULL
		WHERE reset_password_expire IS NOT NULL
		  AND reset_password_expire <= $1
	`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge reset tokens: %w", err)
	}

	return result.RowsAffected()
}

// ListSummaries returns id and name for each of ids
func (r *UserRepository) ListSummaries(ctx context.Context, ids []uuid.UUID) ([]models.UserSummary, error) {
	var users []models.UserSummary

	query := `SELECT id, name FROM users WHERE id = ANY($1::uuid[])`

	if err := r.db.SelectContext(ctx, &users, query, pq.Array(uuidStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to list user summaries: %w", err)
	}

	return users, nil
}

func requireAffected(result sql.Result, what string, id uuid.UUID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("No %s with the id of %s", what, id)
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
