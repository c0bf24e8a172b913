package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	JWTSecret          string
	JWTTTL             time.Duration
	CORSAllowedOrigins []string
	PublicRateLimit    float64
	PublicRateBurst    int

	BookingLockTTL time.Duration
	ClinicTimezone string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// AI advisory
	BedrockModelID  string
	GeminiAPIKey    string
	GeminiModelID   string
	AdvisoryTimeout time.Duration

	// Email
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string
	SESEnabled       bool
	SupportEmail     string
	SiteURL          string

	// Notification pipeline
	NotificationQueueURL    string
	UseMemoryQueue          bool
	NotificationLedgerTable string
	NotifyWorkerCount       int

	// Document uploads
	S3Bucket        string
	S3PublicBaseURL string
	UploadURLTTL    time.Duration
	UploadMaxBytes  int64

	AdminBootstrapEmail    string
	AdminBootstrapPassword string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTTTL:             getEnvAsDuration("JWT_TTL", 24*time.Hour),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		PublicRateLimit:    getEnvAsFloat("PUBLIC_RATE_LIMIT", 5),
		PublicRateBurst:    getEnvAsInt("PUBLIC_RATE_BURST", 20),

		BookingLockTTL: getEnvAsDuration("BOOKING_LOCK_TTL", 5*time.Second),
		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "Asia/Kolkata"),

		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		BedrockModelID:  getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:   getEnv("GEMINI_MODEL_ID", ""),
		AdvisoryTimeout: getEnvAsDuration("ADVISORY_TIMEOUT", 20*time.Second),

		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "NovaCare 24/7"),
		SESEnabled:       getEnvAsBool("SES_ENABLED", false),
		SupportEmail:     getEnv("SUPPORT_EMAIL", "support@novacare247.com"),
		SiteURL:          getEnv("SITE_URL", "http://localhost:5173"),

		NotificationQueueURL:    getEnv("NOTIFICATION_QUEUE_URL", ""),
		UseMemoryQueue:          getEnvAsBool("USE_MEMORY_QUEUE", true),
		NotificationLedgerTable: getEnv("NOTIFICATION_LEDGER_TABLE", ""),
		NotifyWorkerCount:       getEnvAsInt("NOTIFY_WORKER_COUNT", 2),

		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		UploadURLTTL:    getEnvAsDuration("UPLOAD_URL_TTL", 15*time.Minute),
		UploadMaxBytes:  int64(getEnvAsInt("UPLOAD_MAX_BYTES", 10<<20)),

		AdminBootstrapEmail:    getEnv("ADMIN_BOOTSTRAP_EMAIL", ""),
		AdminBootstrapPassword: getEnv("ADMIN_BOOTSTRAP_PASSWORD", ""),
	}
}

// Location resolves ClinicTimezone, falling back to UTC when the zone is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
