package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// RateLimitConfig holds per-endpoint rate limit settings.
type RateLimitConfig struct {
	Enabled                  bool
	RequestCodePerWindow     int
	RequestCodeWindowMinutes int
	VerifyPerWindow          int
	VerifyWindowMinutes      int
	ApplicationsPerMinute    int
}

// VerificationConfig holds verification state-machine knobs.
type VerificationConfig struct {
	CodeTTL         time.Duration
	ResendCooldown  time.Duration
	MaxAttempts     int
	DispatchTimeout time.Duration
	SweepInterval   time.Duration
}

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT (tokens are issued by the auth service; we only validate)
	JWTSecret string
	JWTIssuer string

	// Verification
	Verification VerificationConfig

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// SMS gateway
	SMSGatewayURL    string
	SMSGatewayAPIKey string
	SMSSender        string

	// Rate limiting
	RateLimit RateLimitConfig

	// Redis (optional, shared rate limiting across replicas)
	RedisAddr     string
	RedisPassword string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "careerdesk"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT defaults
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "careerdesk"),

		Verification: VerificationConfig{
			CodeTTL:         getEnvDuration("VERIFICATION_CODE_TTL", 10*time.Minute),
			ResendCooldown:  getEnvDuration("VERIFICATION_RESEND_COOLDOWN", 30*time.Second),
			MaxAttempts:     getEnvInt("VERIFICATION_MAX_ATTEMPTS", 5),
			DispatchTimeout: getEnvDuration("VERIFICATION_DISPATCH_TIMEOUT", 5*time.Second),
			SweepInterval:   getEnvDuration("VERIFICATION_SWEEP_INTERVAL", time.Hour),
		},

		// SMTP (optional)
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "CareerDesk"),

		// SMS gateway (optional)
		SMSGatewayURL:    getEnv("SMS_GATEWAY_URL", ""),
		SMSGatewayAPIKey: getEnv("SMS_GATEWAY_API_KEY", ""),
		SMSSender:        getEnv("SMS_SENDER", "CareerDesk"),

		RateLimit: RateLimitConfig{
			Enabled:                  getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestCodePerWindow:     getEnvInt("RATE_LIMIT_REQUEST_CODE", 10),
			RequestCodeWindowMinutes: getEnvInt("RATE_LIMIT_REQUEST_CODE_WINDOW_MINUTES", 10),
			VerifyPerWindow:          getEnvInt("RATE_LIMIT_VERIFY", 30),
			VerifyWindowMinutes:      getEnvInt("RATE_LIMIT_VERIFY_WINDOW_MINUTES", 10),
			ApplicationsPerMinute:    getEnvInt("RATE_LIMIT_APPLICATIONS_PER_MINUTE", 60),
		},

		// Redis (optional)
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// HasSMTP returns true if the email channel is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// HasSMSGateway returns true if the SMS channel is configured.
func (c *Config) HasSMSGateway() bool {
	return c.SMSGatewayURL != ""
}

// HasRedis returns true if a shared Redis limiter is configured.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
