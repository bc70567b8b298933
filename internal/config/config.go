package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"studio-backend/internal/domain"
	"studio-backend/internal/security"
)

// Audit backends accepted by AUDIT_BACKEND.
const (
	AuditBackendMemory   = "memory"
	AuditBackendFile     = "file"
	AuditBackendS3       = "s3"
	AuditBackendRedis    = "redis"
	AuditBackendPostgres = "postgres"
)

const devAdminPassword = "dev-password-not-for-production"

// Config holds application configuration
type Config struct {
	Port           string
	AllowedOrigins string
	Environment    string // development, staging, production
	LogLevel       string
	LogFormat      string

	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string // bcrypt, preferred over AdminPassword
	SessionBinding    string // strict, user-agent, none
	SessionValidity   time.Duration
	SessionIdleTime   time.Duration
	CSRFValidity      time.Duration

	AuditBackend    string
	AuditFilePath   string
	AuditMaxEntries int
	AuditDocument   string // redis key or postgres row name; empty selects the backend default

	DatabaseURL string
	RedisURL    string
	RabbitMQURL string // optional; empty disables the audit event bus

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3Prefix    string
	S3AccessKey string
	S3SecretKey string

	AlertWebhookURL  string
	AlertMinSeverity string

	OpenAPISpecPath string
	ThrottleRPS     float64
	ThrottleBurst   int
}

// Load loads configuration from environment variables and validates for production
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("Configuration parsing failed: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	return cfg
}

// FromEnv reads the configuration from the process environment without validating it.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),

		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		SessionBinding:    getEnv("SESSION_BINDING", "strict"),

		AuditBackend:  strings.ToLower(getEnv("AUDIT_BACKEND", AuditBackendFile)),
		AuditFilePath: getEnv("AUDIT_FILE_PATH", "data/audit-log.json"),
		AuditDocument: getEnv("AUDIT_DOCUMENT", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Prefix:    getEnv("S3_PREFIX", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),

		AlertWebhookURL:  getEnv("ALERT_WEBHOOK_URL", ""),
		AlertMinSeverity: getEnv("ALERT_MIN_SEVERITY", string(domain.SeverityWarning)),

		OpenAPISpecPath: getEnv("OPENAPI_SPEC_PATH", "artifacts/openapi.yaml"),
	}

	var err error
	if cfg.SessionValidity, err = getDuration("SESSION_VALIDITY", security.DefaultSessionValidity); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTime, err = getDuration("SESSION_IDLE_TIMEOUT", security.DefaultSessionIdleTimeout); err != nil {
		return nil, err
	}
	if cfg.CSRFValidity, err = getDuration("CSRF_TOKEN_VALIDITY", security.DefaultCSRFTokenValidity); err != nil {
		return nil, err
	}
	if cfg.AuditMaxEntries, err = getInt("AUDIT_MAX_ENTRIES", 10000); err != nil {
		return nil, err
	}
	if cfg.ThrottleBurst, err = getInt("THROTTLE_BURST", 50); err != nil {
		return nil, err
	}
	rps := getEnv("THROTTLE_RPS", "20")
	if cfg.ThrottleRPS, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, fmt.Errorf("THROTTLE_RPS must be a number: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration for security and correctness
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AdminUsername) == "" {
		return fmt.Errorf("ADMIN_USERNAME must not be empty")
	}

	if _, err := security.ParseBindingPolicy(c.SessionBinding); err != nil {
		return fmt.Errorf("SESSION_BINDING: %w", err)
	}

	if c.AlertMinSeverity != "" && !domain.Severity(c.AlertMinSeverity).Valid() {
		return fmt.Errorf("ALERT_MIN_SEVERITY must be one of info, warning, critical (got %q)", c.AlertMinSeverity)
	}

	if err := c.validateAuditBackend(); err != nil {
		return err
	}

	// Production environment requires a real admin secret
	if c.IsProduction() {
		if c.AdminPasswordHash == "" && c.AdminPassword == "" {
			return fmt.Errorf("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD must be set in production")
		}

		if c.AdminPasswordHash == "" && len(c.AdminPassword) < 16 {
			return fmt.Errorf("ADMIN_PASSWORD must be at least 16 characters in production (got %d)", len(c.AdminPassword))
		}

		if c.AdminPassword == devAdminPassword {
			return fmt.Errorf("ADMIN_PASSWORD must not use the development default in production")
		}

		if c.AuditBackend == AuditBackendMemory {
			return fmt.Errorf("AUDIT_BACKEND=memory is not allowed in production")
		}

		// Warn about non-HTTPS origins in production
		if strings.Contains(c.AllowedOrigins, "http://") {
			log.Println("WARNING: Ensure ALLOWED_ORIGINS uses HTTPS in production")
		}
	} else if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		// Development/staging: provide default if not set
		c.AdminPassword = devAdminPassword
		log.Println("Using default ADMIN_PASSWORD for development")
	}

	return nil
}

func (c *Config) validateAuditBackend() error {
	switch c.AuditBackend {
	case AuditBackendMemory:
	case AuditBackendFile:
		if c.AuditFilePath == "" {
			return fmt.Errorf("AUDIT_FILE_PATH must be set for the file audit backend")
		}
	case AuditBackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set for the s3 audit backend")
		}
	case AuditBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set for the redis audit backend")
		}
	case AuditBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres audit backend")
		}
	default:
		return fmt.Errorf("AUDIT_BACKEND must be one of memory, file, s3, redis, postgres (got %q)", c.AuditBackend)
	}

	if c.AuditMaxEntries <= 0 {
		return fmt.Errorf("AUDIT_MAX_ENTRIES must be positive (got %d)", c.AuditMaxEntries)
	}
	return nil
}

// SecureCookies reports whether cookies must carry the Secure attribute.
func (c *Config) SecureCookies() bool {
	return c.IsProduction()
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == ""
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30m: %w", key, err)
	}
	return d, nil
}
