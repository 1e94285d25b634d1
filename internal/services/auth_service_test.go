package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusdirectory/facility-api/internal/database"
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/internal/utils"
	"github.com/campusdirectory/facility-api/pkg/apperror"
	"github.com/campusdirectory/facility-api/pkg/jwt"
	"github.com/campusdirectory/facility-api/pkg/mail"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userCols = []string{
	"id", "name", "email", "password_hash", "role",
	"reset_password_token", "reset_password_expire",
	"created_at", "updated_at",
}

// MockGateway is a mock implementation of mail.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockGateway) GetName() string {
	return "mock"
}

func setupAuthTest(t *testing.T) (*AuthService, sqlmock.Sqlmock, *MockGateway, *jwt.Service) {
	db, dbMock := setupServiceDB(t)
	logger, _ := test.NewNullLogger()
	gateway := new(MockGateway)
	jwtService := jwt.NewService("test-secret", time.Hour)

	service := NewAuthService(
		database.NewUserRepository(db),
		jwtService,
		gateway,
		AuthConfig{BcryptCost: bcrypt.MinCost, ResetURLBase: "http://localhost:5000/api/v1/auth/resetpassword"},
		logger,
	)
	return service, dbMock, gateway, jwtService
}

func userRow(t *testing.T, id uuid.UUID, email, password, role string) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	return sqlmock.NewRows(userCols).
		AddRow(id.String(), "Kofi Mensah", email, string(hash), role, nil, nil, now, now)
}

func TestRegister_DefaultsToUserRole(t *testing.T) {
	service, dbMock, _, jwtService := setupAuthTest(t)

	dbMock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "Kofi Mensah", "kofi@ug.edu.gh", sqlmock.AnyArg(), "user", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	result, err := service.Register(context.Background(), models.RegisterInput{
		Name:     " Kofi Mensah ",
		Email:    "Kofi@UG.edu.gh",
		Password: "123456",
	})
	require.NoError(t, err)
	assert.NoError(t, dbMock.ExpectationsWereMet())

	assert.Equal(t, models.RoleUser, result.User.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(result.User.PasswordHash), []byte("123456")))

	claims, err := jwtService.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestRegister_RejectsAdminRole(t *testing.T) {
	service, dbMock, _, _ := setupAuthTest(t)

	_, err := service.Register(context.Background(), models.RegisterInput{
		Name: "Eve", Email: "eve@ug.edu.gh", Password: "123456", Role: models.RoleAdmin,
	})
	assert.True(t, apperror.Is(err, apperror.KindValidationFailed))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	service, dbMock, _, _ := setupAuthTest(t)

	dbMock.ExpectExec(`INSERT INTO users`).WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := service.Register(context.Background(), models.RegisterInput{
		Name: "Kofi", Email: "kofi@ug.edu.gh", Password: "123456", Role: models.RolePublisher,
	})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestLogin(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name     string
		input    models.LoginInput
		setup    func(m sqlmock.Sqlmock)
		wantKind apperror.Kind
		wantMsg  string
	}{
		{
			name:     "missing password",
			input:    models.LoginInput{Email: "kofi@ug.edu.gh"},
			setup:    func(m sqlmock.Sqlmock) {},
			wantKind: apperror.KindValidationFailed,
			wantMsg:  "Please provide an email and password",
		},
		{
			name:  "unknown email",
			input: models.LoginInput{Email: "nobody@ug.edu.gh", Password: "123456"},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM users WHERE email = \$1`).
					WithArgs("nobody@ug.edu.gh").
					WillReturnRows(sqlmock.NewRows(userCols))
			},
			wantKind: apperror.KindUnauthenticated,
			wantMsg:  "Invalid credentials",
		},
		{
			name:  "wrong password",
			input: models.LoginInput{Email: "kofi@ug.edu.gh", Password: "wrong"},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM users WHERE email = \$1`).
					WillReturnRows(userRow(t, userID, "kofi@ug.edu.gh", "123456", "user"))
			},
			wantKind: apperror.KindUnauthenticated,
			wantMsg:  "Invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, dbMock, _, _ := setupAuthTest(t)
			tt.setup(dbMock)

			_, err := service.Login(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperror.KindOf(err))
			assert.Equal(t, tt.wantMsg, apperror.PublicMessage(err))
			assert.NoError(t, dbMock.ExpectationsWereMet())
		})
	}
}

func TestLogin_Success(t *testing.T) {
	service, dbMock, _, _ := setupAuthTest(t)
	userID := uuid.New()

	dbMock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("kofi@ug.edu.gh").
		WillReturnRows(userRow(t, userID, "kofi@ug.edu.gh", "123456", "publisher"))

	result, err := service.Login(context.Background(), models.LoginInput{Email: "kofi@ug.edu.gh", Password: "123456"})
	require.NoError(t, err)
	assert.Equal(t, userID, result.User.ID)
	assert.NotEmpty(t, result.Token)
}

func TestMe_DeletedUser(t *testing.T) {
	service, dbMock, _, _ := setupAuthTest(t)

	dbMock.ExpectQuery(`FROM users WHERE id = \$1`).WillReturnRows(sqlmock.NewRows(userCols))

	_, err := service.Me(context.Background(), uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))
}

func TestUpdatePassword_WrongCurrent(t *testing.T) {
	service, dbMock, _, _ := setupAuthTest(t)
	userID := uuid.New()

	dbMock.ExpectQuery(`FROM users WHERE id = \$1`).
		WillReturnRows(userRow(t, userID, "kofi@ug.edu.gh", "123456", "user"))

	_, err := service.UpdatePassword(context.Background(), userID, models.UpdatePasswordInput{
		CurrentPassword: "nope",
		NewPassword:     "654321",
	})
	require.Error(t, err)
	assert.Equal(t, "Password is incorrect.", apperror.PublicMessage(err))
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestUpdatePassword_Success(t *testing.T) {
	service, dbMock, _, _ := setupAuthTest(t)
	userID := uuid.New()

	dbMock.ExpectQuery(`FROM users WHERE id = \$1`).
		WillReturnRows(userRow(t, userID, "kofi@ug.edu.gh", "123456", "user"))
	dbMock.ExpectExec(`UPDATE users\s+SET password_hash = \$1`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), userID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := service.UpdatePassword(context.Background(), userID, models.UpdatePasswordInput{
		CurrentPassword: "123456",
		NewPassword:     "654321",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(result.User.PasswordHash), []byte("654321")))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	service, dbMock, gateway, _ := setupAuthTest(t)

	dbMock.ExpectQuery(`FROM users WHERE email = \$1`).WillReturnRows(sqlmock.NewRows(userCols))

	err := service.ForgotPassword(context.Background(), "nobody@ug.edu.gh")
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, "No user with that email", apperror.PublicMessage(err))
	gateway.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestForgotPassword_SendsResetLink(t *testing.T) {
	service, dbMock, gateway, _ := setupAuthTest(t)
	userID := uuid.New()

	dbMock.ExpectQuery(`FROM users WHERE email = \$1`).
		WillReturnRows(userRow(t, userID, "kofi@ug.edu.gh", "123456", "user"))
	dbMock.ExpectExec(`UPDATE users\s+SET reset_password_token = \$1`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), userID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var sent mail.Message
	gateway.On("Send", mock.Anything, mock.AnythingOfType("mail.Message")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(mail.Message) }).
		Return(nil)

	require.NoError(t, service.ForgotPassword(context.Background(), "kofi@ug.edu.gh"))
	assert.NoError(t, dbMock.ExpectationsWereMet())
	gateway.AssertExpectations(t)

	assert.Equal(t, "kofi@ug.edu.gh", sent.To)
	assert.Equal(t, "Password reset token", sent.Subject)
	assert.Contains(t, sent.Text, "Please make a PUT request to:")

	prefix := "http://localhost:5000/api/v1/auth/resetpassword/"
	idx := strings.Index(sent.Text, prefix)
	require.GreaterOrEqual(t, idx, 0)
	token := sent.Text[idx+len(prefix):]
	assert.Len(t, token, 40)
}

func TestForgotPassword_DeliveryFailureClearsToken(t *testing.T) {
	service, dbMock, gateway, _ := setupAuthTest(t)
	userID := uuid.New()

	dbMock.ExpectQuery(`FROM users WHERE email = \$1`).
		WillReturnRows(userRow(t, userID, "kofi@ug.edu.gh", "123456", "user"))
	dbMock.ExpectExec(`UPDATE users\s+SET reset_password_token = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectExec(`UPDATE users\s+SET reset_password_token = NULL`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	gateway.On("Send", mock.Anything, mock.Anything).Return(fmt.Errorf("sendgrid: 401"))

	err := service.ForgotPassword(context.Background(), "kofi@ug.edu.gh")
	require.Error(t, err)
	assert.Equal(t, apperror.KindEmailDeliveryFailed, apperror.KindOf(err))
	assert.Equal(t, "Email could not be sent", apperror.PublicMessage(err))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestResetPassword_InvalidToken(t *testing.T) {
	service, dbMock, _, _ := setupAuthTest(t)

	dbMock.ExpectQuery(`WHERE reset_password_token = \$1`).
		WithArgs(utils.HashToken("stale"), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := service.ResetPassword(context.Background(), "stale", "654321")
	require.Error(t, err)
	assert.Equal(t, "Invalid token", apperror.PublicMessage(err))
	assert.Equal(t, 400, apperror.StatusCode(err))
}

func TestResetPassword_Success(t *testing.T) {
	service, dbMock, _, _ := setupAuthTest(t)
	userID := uuid.New()

	dbMock.ExpectQuery(`WHERE reset_password_token = \$1`).
		WithArgs(utils.HashToken("abc123"), sqlmock.AnyArg()).
		WillReturnRows(userRow(t, userID, "kofi@ug.edu.gh", "123456", "user"))
	dbMock.ExpectExec(`UPDATE users\s+SET password_hash = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := service.ResetPassword(context.Background(), "abc123", "654321")
	require.NoError(t, err)
	assert.Equal(t, userID, result.User.ID)
	assert.NotEmpty(t, result.Token)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestAuthenticate(t *testing.T) {
	service, _, _, jwtService := setupAuthTest(t)
	userID := uuid.New()

	token, err := jwtService.GenerateToken(userID, models.RolePublisher)
	require.NoError(t, err)

	claims, err := service.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)

	_, err = service.Authenticate("garbage")
	assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))
}
