package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/facilities?sslmode=disable")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, 30, cfg.JWT.CookieExpireDays)
	assert.Equal(t, 5, cfg.Upload.MaxFacilityPhotos)
	assert.Equal(t, "local", cfg.Upload.StorageDriver)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, 900, cfg.RateLimit.WindowSeconds)
	assert.False(t, cfg.Server.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_EXPIRE", "7d")
	t.Setenv("MAX_ROOM_PHOTOS_UPLOAD", "8")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, 8, cfg.Upload.MaxRoomPhotos)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Server.IsProduction())
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_FACILITY_PHOTOS_UPLOAD", "five")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Upload.MaxFacilityPhotos)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET is required"},
		{"bad driver", map[string]string{"DATABASE_DRIVER": "mysql"}, "invalid DATABASE_DRIVER"},
		{"s3 without bucket", map[string]string{"STORAGE_DRIVER": "s3"}, "S3_BUCKET is required"},
		{"cloudinary without url", map[string]string{"STORAGE_DRIVER": "cloudinary"}, "CLOUDINARY_URL is required"},
		{"unknown storage", map[string]string{"STORAGE_DRIVER": "ftp"}, "invalid STORAGE_DRIVER"},
		{"production email without key", map[string]string{"EMAIL_MODE": "production"}, "SENDGRID_API_KEY is required"},
		{"zero rate limit window", map[string]string{"RATE_LIMIT_WINDOW_SECONDS": "0"}, "RATE_LIMIT_WINDOW_SECONDS must be positive"},
		{"negative reset window", map[string]string{"RESET_RATE_WINDOW_MINUTES": "-5"}, "RESET_RATE_WINDOW_MINUTES must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ZeroWindowWithLimiterOff(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_REQUESTS", "0")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RateLimit.Requests)
}
