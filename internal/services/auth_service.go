package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusdirectory/facility-api/internal/database"
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/internal/utils"
	"github.com/campusdirectory/facility-api/pkg/apperror"
	"github.com/campusdirectory/facility-api/pkg/jwt"
	"github.com/campusdirectory/facility-api/pkg/mail"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = 10 * time.Minute

func invalidCredentials() error {
	return apperror.Unauthenticated("Invalid credentials")
}

// AuthConfig holds the auth service settings
type AuthConfig struct {
	BcryptCost   int
	ResetURLBase string // the reset token is appended as the last path segment
}

// AuthResult is a user with a freshly signed session token
type AuthResult struct {
	User  *models.User
	Token string
}

// AuthService handles accounts, sessions and password resets
type AuthService struct {
	users  *database.UserRepository
	jwt    *jwt.Service
	mailer mail.Gateway
	config AuthConfig
	logger *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	users *database.UserRepository,
	jwtService *jwt.Service,
	mailer mail.Gateway,
	config AuthConfig,
	logger *logrus.Logger,
) *AuthService {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:  users,
		jwt:    jwtService,
		mailer: mailer,
		config: config,
		logger: logger,
	}
}

// Register creates an account and signs it in
func (s *AuthService) Register(ctx context.Context, in models.RegisterInput) (*AuthResult, error) {
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RolePublisher {
		return nil, apperror.Validation(fmt.Sprintf("Role %s cannot be registered", role))
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User registered")

	return s.issue(user)
}

// Login checks credentials. Unknown email and wrong password return the same
// error; on a wrong password the result still carries the user for auditing.
func (s *AuthService) Login(ctx context.Context, in models.LoginInput) (*AuthResult, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperror.Validation("Please provide an email and password")
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, invalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return &AuthResult{User: user}, invalidCredentials()
	}

	return s.issue(user)
}

// Me returns the account behind a session
func (s *AuthService) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.Unauthenticated("Not authorized to access this route")
	}
	return user, nil
}

// UpdateDetails changes name and email
func (s *AuthService) UpdateDetails(ctx context.Context, id uuid.UUID, in models.UpdateDetailsInput) (*models.User, error) {
	if err := s.users.UpdateDetails(ctx, id, strings.TrimSpace(in.Name), normalizeEmail(in.Email)); err != nil {
		return nil, err
	}
	return s.Me(ctx, id)
}

// UpdatePassword replaces the password after checking the current one
func (s *AuthService) UpdatePassword(ctx context.Context, id uuid.UUID, in models.UpdatePasswordInput) (*AuthResult, error) {
	user, err := s.Me(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return nil, apperror.Unauthenticated("Password is incorrect.")
	}

	if err := s.setPassword(ctx, user, in.NewPassword); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// ForgotPassword stores a reset token and emails its link. When delivery
// fails the token is withdrawn.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.NotFound("No user with that email")
	}

	token, hash, err := utils.GenerateResetToken()
	if err != nil {
		return apperror.Internal("Failed to generate reset token", err)
	}

	if err := s.users.SetResetToken(ctx, user.ID, hash, time.Now().Add(resetTokenTTL)); err != nil {
		return err
	}

	resetURL := strings.TrimRight(s.config.ResetURLBase, "/") + "/" + token
	msg := mail.Message{
		To:      user.Email,
		Name:    user.Name,
		Subject: "Password reset token",
		Text: "You are receiving this email because you (or someone else) has requested the reset of a password. " +
			"Please make a PUT request to:\n\n " + resetURL,
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": user.ID,
			"gateway": s.mailer.GetName(),
		}).Error("Failed to send password reset email")

		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.WithError(clearErr).WithField("user_id", user.ID).Error("Failed to withdraw reset token")
		}
		return apperror.New(apperror.KindEmailDeliveryFailed, "Email could not be sent", err)
	}

	s.logger.WithField("user_id", user.ID).Info("Password reset email sent")
	return nil
}

// ResetPassword sets a new password for the holder of an unexpired token
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (*AuthResult, error) {
	user, err := s.users.GetByResetToken(ctx, utils.HashToken(token), time.Now())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.Validation("Invalid token")
	}

	if err := s.setPassword(ctx, user, password); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Authenticate resolves a session token to a principal's id and role
func (s *AuthService) Authenticate(token string) (*jwt.Claims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, apperror.New(apperror.KindUnauthenticated, "Not authorized to access this route", err)
	}
	return claims, nil
}

func (s *AuthService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	user.PasswordHash = hash
	return nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperror.Validation("Password is too long")
		}
		return "", apperror.Internal("Failed to hash password", err)
	}
	return string(hash), nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.jwt.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperror.Internal("Failed to issue token", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
