package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusdirectory/facility-api/internal/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userCols = []string{
	"id", "name", "email", "password_hash", "role",
	"reset_password_token", "reset_password_expire",
	"created_at", "updated_at",
}

func userRow(t *testing.T, id uuid.UUID, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	return sqlmock.NewRows(userCols).
		AddRow(id.String(), "Ama Owusu", "ama@ug.edu.gh", string(hash), "user", nil, nil, now, now)
}

func windowRows(count int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count", "last_request"}).AddRow(count, time.Now())
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func tokenCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == middleware.TokenCookie {
			return cookie
		}
	}
	return nil
}

func TestRegister_SetsCookie(t *testing.T) {
	fx := newHandlerFixture(t)

	fx.mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(1, 1))

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, jsonRequest("POST", "/api/v1/auth/register", map[string]string{
		"name":     "Ama Owusu",
		"email":    "ama@ug.edu.gh",
		"password": "123456",
		"role":     "publisher",
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Token)

	cookie := tokenCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, body.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, 30*24*60*60, cookie.MaxAge)
}

func TestRegister_ValidationMessage(t *testing.T) {
	fx := newHandlerFixture(t)

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, jsonRequest("POST", "/api/v1/auth/register", map[string]string{
		"name":     "Ama Owusu",
		"email":    "not-an-email",
		"password": "123456",
		"role":     "admin",
	}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "please add a valid email")
	assert.Contains(t, body.Error, "role has an invalid value 'admin'")
}

func TestLogin_MissingFields(t *testing.T) {
	fx := newHandlerFixture(t)

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, jsonRequest("POST", "/api/v1/auth/login", map[string]string{"email": "ama@ug.edu.gh"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Please provide an email and password"}`, w.Body.String())
}

func TestLogin_WrongPassword(t *testing.T) {
	fx := newHandlerFixture(t)

	fx.mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WillReturnRows(userRow(t, uuid.New(), "123456"))

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, jsonRequest("POST", "/api/v1/auth/login", map[string]string{
		"email": "ama@ug.edu.gh", "password": "654321",
	}))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid credentials"}`, w.Body.String())
	assert.Nil(t, tokenCookie(w))
}

func TestLogout_ClearsCookie(t *testing.T) {
	fx := newHandlerFixture(t)

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/auth/logout", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{}}`, w.Body.String())

	cookie := tokenCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, "none", cookie.Value)
	assert.Equal(t, 10, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
}

func TestMe_ReturnsUserWithoutSecrets(t *testing.T) {
	fx := newHandlerFixture(t)
	userID := uuid.New()

	fx.mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnRows(userRow(t, userID, "123456"))

	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", fx.bearer(t, userID, "user"))
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"ama@ug.edu.gh"`)
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "reset")
}

func TestForgotPassword_SendsEmail(t *testing.T) {
	fx := newHandlerFixture(t)
	userID := uuid.New()

	fx.mock.ExpectQuery(`FROM password_reset_requests`).
		WithArgs("ama@ug.edu.gh", "email", sqlmock.AnyArg()).
		WillReturnRows(windowRows(0))
	fx.mock.ExpectQuery(`FROM password_reset_requests`).
		WithArgs(sqlmock.AnyArg(), "ip", sqlmock.AnyArg()).
		WillReturnRows(windowRows(0))
	fx.mock.ExpectExec(`INSERT INTO password_reset_requests`).
		WithArgs("ama@ug.edu.gh", "email").
		WillReturnResult(sqlmock.NewResult(1, 1))
	fx.mock.ExpectExec(`INSERT INTO password_reset_requests`).
		WithArgs(sqlmock.AnyArg(), "ip").
		WillReturnResult(sqlmock.NewResult(1, 1))
	fx.mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("ama@ug.edu.gh").
		WillReturnRows(userRow(t, userID, "123456"))
	fx.mock.ExpectExec(`UPDATE users\s+SET reset_password_token = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, jsonRequest("POST", "/api/v1/auth/forgotpassword", map[string]string{"email": "Ama@ug.edu.gh"}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"data":"Email Sent"}`, w.Body.String())
	assert.NoError(t, fx.mock.ExpectationsWereMet())

	msg, ok := fx.mailer.Last()
	require.True(t, ok)
	assert.Equal(t, "ama@ug.edu.gh", msg.To)
	assert.True(t, strings.Contains(msg.Text, "/api/v1/auth/resetpassword/"))
}

func TestForgotPassword_RateLimited(t *testing.T) {
	fx := newHandlerFixture(t)

	fx.mock.ExpectQuery(`FROM password_reset_requests`).
		WithArgs("ama@ug.edu.gh", "email", sqlmock.AnyArg()).
		WillReturnRows(windowRows(3))

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, jsonRequest("POST", "/api/v1/auth/forgotpassword", map[string]string{"email": "ama@ug.edu.gh"}))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Too many password reset requests for this email")
	assert.NoError(t, fx.mock.ExpectationsWereMet())
	_, sent := fx.mailer.Last()
	assert.False(t, sent)
}

func TestResetPassword_InvalidToken(t *testing.T) {
	fx := newHandlerFixture(t)

	fx.mock.ExpectQuery(`WHERE reset_password_token = \$1`).
		WillReturnRows(sqlmock.NewRows(userCols))

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, jsonRequest("PUT", "/api/v1/auth/resetpassword/deadbeef", map[string]string{"password": "654321"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid token"}`, w.Body.String())
}
