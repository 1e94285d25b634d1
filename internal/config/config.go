package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Upload    UploadConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Security  SecurityConfig
	Cron      CronConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// IsProduction reports whether the server runs in production mode
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	Driver             string // "postgres" (lib/pq) or "pgx" (simple protocol, for poolers)
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds token and cookie configuration
type JWTConfig struct {
	Secret           string
	Expiry           time.Duration
	CookieExpireDays int
}

// UploadConfig holds photo upload configuration
type UploadConfig struct {
	Path              string // local directory or key prefix for remote stores
	MaxFileSize       int64  // bytes
	MaxFacilityPhotos int
	MaxRoomPhotos     int
	StorageDriver     string // local, s3, cloudinary

	S3Region       string
	S3Bucket       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	CloudinaryURL string
}

// EmailConfig holds outbound email configuration
type EmailConfig struct {
	Mode         string // "dev" logs messages, "production" sends through SendGrid
	SendGridKey  string
	FromEmail    string
	FromName     string
	ResetURLBase string // e.g. https://api.example.com/api/v1/auth/resetpassword
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RedisURL      string
	Requests      int
	WindowSeconds int

	// Forgot-password throttling
	ResetLimit         int
	ResetWindowMinutes int
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
	EnableAuditLog   bool
}

// CronConfig holds background job configuration
type CronConfig struct {
	Enabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "5000"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			Driver:             getEnv("DATABASE_DRIVER", "postgres"),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:           getEnv("JWT_SECRET", ""),
			Expiry:           getEnvAsDuration("JWT_EXPIRE", 30*24*time.Hour),
			CookieExpireDays: getEnvAsInt("JWT_COOKIE_EXPIRE", 30),
		},
		Upload: UploadConfig{
			Path:              getEnv("FILE_UPLOAD_PATH", "./public/uploads"),
			MaxFileSize:       int64(getEnvAsInt("MAX_FILE_UPLOAD", 1000000)),
			MaxFacilityPhotos: getEnvAsInt("MAX_FACILITY_PHOTOS_UPLOAD", 5),
			MaxRoomPhotos:     getEnvAsInt("MAX_ROOM_PHOTOS_UPLOAD", 5),
			StorageDriver:     getEnv("STORAGE_DRIVER", "local"),
			S3Region:          getEnv("S3_REGION", "us-east-1"),
			S3Bucket:          getEnv("S3_BUCKET", ""),
			S3Endpoint:        getEnv("S3_ENDPOINT", ""),
			S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
			S3UsePathStyle:    getEnvAsBool("S3_USE_PATH_STYLE", false),
			CloudinaryURL:     getEnv("CLOUDINARY_URL", ""),
		},
		Email: EmailConfig{
			Mode:         getEnv("EMAIL_MODE", "dev"),
			SendGridKey:  getEnv("SENDGRID_API_KEY", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@campusfacilities.local"),
			FromName:     getEnv("FROM_NAME", "Campus Facilities"),
			ResetURLBase: getEnv("RESET_URL_BASE", "http://localhost:5000/api/v1/auth/resetpassword"),
		},
		RateLimit: RateLimitConfig{
			RedisURL:           getEnv("REDIS_URL", ""),
			Requests:           getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			WindowSeconds:      getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 900),
			ResetLimit:         getEnvAsInt("RESET_RATE_LIMIT", 3),
			ResetWindowMinutes: getEnvAsInt("RESET_RATE_WINDOW_MINUTES", 15),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 10),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
		Cron: CronConfig{
			Enabled: getEnvAsBool("CRON_ENABLED", true),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "pgx" {
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be 'postgres' or 'pgx')", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_UPLOAD must be positive")
	}

	if c.Upload.MaxFacilityPhotos <= 0 || c.Upload.MaxRoomPhotos <= 0 {
		return fmt.Errorf("photo limits must be positive")
	}

	switch c.Upload.StorageDriver {
	case "local":
	case "s3":
		if c.Upload.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage driver")
		}
	case "cloudinary":
		if c.Upload.CloudinaryURL == "" {
			return fmt.Errorf("CLOUDINARY_URL is required for the cloudinary storage driver")
		}
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER: %s (must be 'local', 's3' or 'cloudinary')", c.Upload.StorageDriver)
	}

	if c.RateLimit.Requests > 0 && c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive when RATE_LIMIT_REQUESTS is set")
	}

	if c.RateLimit.ResetLimit > 0 && c.RateLimit.ResetWindowMinutes <= 0 {
		return fmt.Errorf("RESET_RATE_WINDOW_MINUTES must be positive when RESET_RATE_LIMIT is set")
	}

	if c.Email.Mode == "production" && c.Email.SendGridKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is required when EMAIL_MODE=production")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("720h") and the "30d" day form
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if strings.HasSuffix(valueStr, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(valueStr, "d"))
		if err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
