package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// Verification-record lifetimes are policy inputs, per variant.
	MfaCodeTTL    time.Duration
	ResetTokenTTL time.Duration

	// Base URL embedded in verification links sent by email.
	VerificationBaseURL string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	NotifierWorkers    int
	NotifierQueueDepth int

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users             string
	Roles             string
	UserVerifications string
	Notifications     string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:             getEnv("DYNAMO_TABLE_USERS", "users"),
			Roles:             getEnv("DYNAMO_TABLE_ROLES", "roles"),
			UserVerifications: getEnv("DYNAMO_TABLE_USER_VERIFICATIONS", "user_verifications"),
			Notifications:     getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
		},

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", "ACCOUNT_API"),
		JWTAudience: getEnv("JWT_AUDIENCE", "ACCOUNT_API_CLIENTS"),

		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 120*time.Hour),
		MfaCodeTTL:      getEnvDuration("MFA_CODE_TTL", 24*time.Hour),
		ResetTokenTTL:   getEnvDuration("RESET_TOKEN_TTL", 10*time.Minute),

		VerificationBaseURL: getEnv("VERIFICATION_BASE_URL", "http://localhost:3000"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		NotifierWorkers:    getEnvInt("NOTIFIER_WORKERS", 4),
		NotifierQueueDepth: getEnvInt("NOTIFIER_QUEUE_DEPTH", 64),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
