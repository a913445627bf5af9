// Package config loads the application configuration from the environment
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration. It is built once at
// startup and passed by reference into every component constructor.
type Config struct {
	// API contains API server configuration
	API APIConfig
	// Auth contains authentication configuration
	Auth AuthConfig
	// TwoFactor contains TOTP/backup-code configuration
	TwoFactor TwoFactorConfig
	// Database contains database configuration
	Database DatabaseConfig
	// Email contains email service configuration
	Email EmailConfig
	// Redis contains the shared rate-limit store configuration
	Redis RedisConfig
	// RateLimit contains token bucket parameters
	RateLimit RateLimitConfig
}

// APIConfig contains API server settings
type APIConfig struct {
	// Port is the server port to listen on
	Port string
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	// PrivateKeyPath is the path to the PEM-encoded RSA private key used to sign tokens
	PrivateKeyPath string
	// PublicKeyPath is the path to the PEM-encoded RSA public key used to verify tokens
	PublicKeyPath string
	// AccessTokenDuration is the access token lifetime
	AccessTokenDuration time.Duration
	// RefreshTokenDuration is the refresh token and session lifetime
	RefreshTokenDuration time.Duration
	// MaxLoginAttempts is the failed-password count that triggers a lockout
	MaxLoginAttempts int
	// LockoutDuration is how long an account stays locked
	LockoutDuration time.Duration
	// PasswordMinLength is the minimum accepted password length
	PasswordMinLength int
	// RegistrationOpen determines if new user registration is allowed
	RegistrationOpen bool
}

// TwoFactorConfig contains second-factor settings
type TwoFactorConfig struct {
	// Issuer is the issuer name shown in authenticator apps
	Issuer string
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname
	Host string
	// Port is the database server port
	Port int
	// User is the database username
	User string
	// Password is the database password
	Password string
	// DBName is the database name
	DBName string
	// SSLMode is the SSL mode for the database connection
	SSLMode string
	// MigrationsPath is the path to database migrations
	MigrationsPath string
}

// EmailConfig contains email service settings
type EmailConfig struct {
	// SMTPHost is the SMTP server hostname
	SMTPHost string
	// SMTPPort is the SMTP server port
	SMTPPort int
	// SMTPUsername is the SMTP authentication username
	SMTPUsername string
	// SMTPPassword is the SMTP authentication password
	SMTPPassword string
	// FromAddress is the email address used as sender
	FromAddress string
	// AppURL is the base URL of the application
	AppURL string
}

// RedisConfig contains the shared rate-limit store settings
type RedisConfig struct {
	// Addr is the Redis host:port. Empty disables the limiter (always allow).
	Addr string
	// Password is the Redis password
	Password string
	// DB is the Redis database number
	DB int
	// Timeout bounds every limiter call; the limiter sits on the hot path
	// of every request, so this stays sub-second.
	Timeout time.Duration
}

// RateLimitConfig contains token bucket parameters
type RateLimitConfig struct {
	// GlobalCapacity is the per-IP bucket capacity applied to every request
	GlobalCapacity int
	// GlobalRefillPerSec is the per-IP bucket refill rate in tokens per second
	GlobalRefillPerSec float64
	// LoginLimit is the per-IP login bucket capacity
	LoginLimit int
	// LoginWindow is the window over which LoginLimit tokens refill
	LoginWindow time.Duration
}

// LoadFromEnv retrieves configuration from environment variables
func (c *Config) LoadFromEnv() error {
	c.API = APIConfig{
		Port: getEnvOrDefault("API_PORT", "8080"),
	}
	c.Database = DatabaseConfig{
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvAsInt("DB_PORT", 5432),
		User:           getEnvOrDefault("DB_USER", "postgres"),
		Password:       getEnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:         getEnvOrDefault("DB_NAME", "sentinel"),
		SSLMode:        getEnvOrDefault("DB_SSL_MODE", "disable"),
		MigrationsPath: "migrations",
	}
	c.Auth = AuthConfig{
		PrivateKeyPath:       os.Getenv("JWT_PRIVATE_KEY_PATH"),
		PublicKeyPath:        os.Getenv("JWT_PUBLIC_KEY_PATH"),
		AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 30*time.Minute),
		RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 30*24*time.Hour),
		MaxLoginAttempts:     getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
		LockoutDuration:      getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
		PasswordMinLength:    getEnvAsInt("PASSWORD_MIN_LENGTH", 8),
		RegistrationOpen:     getEnvAsBool("REGISTRATION_OPEN", true),
	}
	c.TwoFactor = TwoFactorConfig{
		Issuer: getEnvOrDefault("TOTP_ISSUER_NAME", "Sentinel"),
	}
	c.Email = EmailConfig{
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromAddress:  os.Getenv("SMTP_FROM"),
		AppURL:       os.Getenv("APP_URL"),
	}
	c.Redis = RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvAsInt("REDIS_DB", 0),
		Timeout:  getEnvAsDuration("REDIS_TIMEOUT", 500*time.Millisecond),
	}
	c.RateLimit = RateLimitConfig{
		GlobalCapacity:     getEnvAsInt("RATE_LIMIT_CAPACITY", 300),
		GlobalRefillPerSec: getEnvAsFloat("RATE_LIMIT_REFILL_PER_SEC", 5),
		LoginLimit:         getEnvAsInt("RATE_LIMIT_LOGIN_LIMIT", 10),
		LoginWindow:        getEnvAsDuration("RATE_LIMIT_LOGIN_WINDOW", time.Minute),
	}

	// Validate required fields
	if c.Auth.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}
	if c.Auth.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	return nil
}

// getEnvAsInt retrieves an environment variable and converts it to an integer
func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvAsFloat retrieves an environment variable and converts it to a float
func getEnvAsFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvAsBool retrieves an environment variable and converts it to a boolean
func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsDuration retrieves an environment variable and parses it as a duration
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvOrDefault(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
