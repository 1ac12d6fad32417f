package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Messaging    MessagingConfig
	Notification NotificationConfig
	Detector     DetectorConfig
	Payment      PaymentConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines admin authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	AdminPasswordHash     string
}

// MessagingConfig configures the transactional messaging provider.
type MessagingConfig struct {
	APIKey      string
	BaseURL     string
	SenderEmail string
	SenderName  string
	SMSSender   string
	SMSEnabled  bool
}

// NotificationConfig controls delivery retries and follow-up scheduling.
type NotificationConfig struct {
	MaxAttempts         int
	RetryBackoffSeconds int
	ReviewDelayHours    int
}

// DetectorConfig tunes the status change listener.
type DetectorConfig struct {
	RateLimitMax           int
	RateLimitWindowSeconds int
	RateLimitBackend       string
	RestartDelaySeconds    int
	CleanupIntervalMinutes int
}

// PaymentConfig holds webhook verification values.
type PaymentConfig struct {
	WebhookSecret string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "citation-intake-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			AdminPasswordHash:     os.Getenv("AUTH_ADMIN_PASSWORD_HASH"),
		},
		Messaging: MessagingConfig{
			APIKey:      os.Getenv("MESSAGING_API_KEY"),
			BaseURL:     getEnv("MESSAGING_BASE_URL", "https://api.brevo.com"),
			SenderEmail: getEnv("MESSAGING_SENDER_EMAIL", "noreply@example.com"),
			SenderName:  getEnv("MESSAGING_SENDER_NAME", "Citation Defense"),
			SMSSender:   getEnv("MESSAGING_SMS_SENDER", "CitDefense"),
			SMSEnabled:  getEnvAsBool("MESSAGING_SMS_ENABLED", false),
		},
		Notification: NotificationConfig{
			MaxAttempts:         getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 3),
			RetryBackoffSeconds: getEnvAsInt("NOTIFY_RETRY_BACKOFF_SECONDS", 2),
			ReviewDelayHours:    getEnvAsInt("NOTIFY_REVIEW_DELAY_HOURS", 24),
		},
		Detector: DetectorConfig{
			RateLimitMax:           getEnvAsInt("DETECTOR_RATE_LIMIT_MAX", 5),
			RateLimitWindowSeconds: getEnvAsInt("DETECTOR_RATE_LIMIT_WINDOW_SECONDS", 60),
			RateLimitBackend:       getEnv("DETECTOR_RATE_LIMIT_BACKEND", "memory"),
			RestartDelaySeconds:    getEnvAsInt("DETECTOR_RESTART_DELAY_SECONDS", 5),
			CleanupIntervalMinutes: getEnvAsInt("DETECTOR_CLEANUP_INTERVAL_MINUTES", 60),
		},
		Payment: PaymentConfig{
			WebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RetryBackoff returns the base delay between delivery attempts.
func (n NotificationConfig) RetryBackoff() time.Duration {
	if n.RetryBackoffSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(n.RetryBackoffSeconds) * time.Second
}

// ReviewDelay returns how far in the future review requests are scheduled.
func (n NotificationConfig) ReviewDelay() time.Duration {
	if n.ReviewDelayHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(n.ReviewDelayHours) * time.Hour
}

// RateLimitWindow returns the sliding window span.
func (d DetectorConfig) RateLimitWindow() time.Duration {
	if d.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(d.RateLimitWindowSeconds) * time.Second
}

// RestartDelay returns the fixed delay before resubscribing after a feed error.
func (d DetectorConfig) RestartDelay() time.Duration {
	if d.RestartDelaySeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.RestartDelaySeconds) * time.Second
}

// CleanupInterval returns the cadence of the rate-limit housekeeping pass.
func (d DetectorConfig) CleanupInterval() time.Duration {
	if d.CleanupIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(d.CleanupIntervalMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
