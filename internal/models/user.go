package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Roles
const (
	RoleUser      = "user"
	RolePublisher = "publisher"
	RoleAdmin     = "admin"
)

// NullString wraps sql.NullString to provide proper JSON marshaling
type NullString struct {
	sql.NullString
}

// NewNullString returns a valid NullString, or an invalid one for ""
func NewNullString(s string) NullString {
	return NullString{sql.NullString{String: s, Valid: s != ""}}
}

// MarshalJSON implements json.Marshaler
func (ns NullString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.String)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (ns *NullString) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != nil {
		ns.Valid = true
		ns.String = *s
	} else {
		ns.Valid = false
		ns.String = ""
	}
	return nil
}

// User is an account able to log in. Reset token fields never leave the server.
type User struct {
	ID                  uuid.UUID    `db:"id" json:"id"`
	Name                string       `db:"name" json:"name"`
	Email               string       `db:"email" json:"email"`
	PasswordHash        string       `db:"password_hash" json:"-"`
	Role                string       `db:"role" json:"role"`
	ResetPasswordToken  NullString   `db:"reset_password_token" json:"-"`
	ResetPasswordExpire sql.NullTime `db:"reset_password_expire" json:"-"`
	CreatedAt           time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time    `db:"updated_at" json:"updatedAt"`
}

// UserSummary is the expanded form of a user reference
type UserSummary struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// RegisterInput is the body of a registration. Admins cannot self-register.
type RegisterInput struct {
	Name     string `json:"name" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,contact_email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=user publisher"`
}

// LoginInput is checked by the auth service so a missing field gets the
// login-specific message
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateDetailsInput changes name and email only
type UpdateDetailsInput struct {
	Name  string `json:"name" binding:"required,max=50"`
	Email string `json:"email" binding:"required,contact_email"`
}

// UpdatePasswordInput requires the current password
type UpdatePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// ForgotPasswordInput starts a password reset
type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,contact_email"`
}

// ResetPasswordInput completes a password reset
type ResetPasswordInput struct {
	Password string `json:"password" binding:"required,min=6"`
}
