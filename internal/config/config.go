package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int

	LogLevel  string
	LogFormat string

	// Staff account created at startup when missing.
	AdminEmail    string
	AdminPassword string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL     string
	TaskQueueName   string
	TaskMaxAttempts int

	KafkaBrokers []string
	KafkaTopic   string

	WebhookURLs   []string
	WebhookSecret string

	LockProviderURL     string
	LockProviderToken   string
	NotifyProviderURL   string
	NotifyProviderToken string

	SideEffectTimeout time.Duration
	SideEffectRetries int
	IdempotencyTTL    time.Duration

	OtelEndpoint string
	StoragePath  string

	// Local hours used for lock code validity windows.
	CheckInHour  int
	CheckOutHour int
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	cfg.IsProduction = getEnv("APP_ENV", "dev") == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required for signing staff tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "json")

	cfg.AdminEmail = getEnv("ADMIN_EMAIL", "")
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", "")

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", "")
	cfg.TaskQueueName = getEnv("TASK_QUEUE_NAME", "stay.side_effects")
	if cfg.TaskMaxAttempts, err = getEnvAsInt("TASK_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}

	cfg.KafkaBrokers = getEnvAsList("KAFKA_BROKERS")
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "stay.booking-events")

	cfg.WebhookURLs = getEnvAsList("WEBHOOK_URLS")
	cfg.WebhookSecret = getEnv("WEBHOOK_SECRET", "")

	cfg.LockProviderURL = getEnv("LOCK_PROVIDER_URL", "")
	cfg.LockProviderToken = getEnv("LOCK_PROVIDER_TOKEN", "")
	cfg.NotifyProviderURL = getEnv("NOTIFY_PROVIDER_URL", "")
	cfg.NotifyProviderToken = getEnv("NOTIFY_PROVIDER_TOKEN", "")

	if cfg.SideEffectTimeout, err = getEnvAsDuration("SIDE_EFFECT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SideEffectRetries, err = getEnvAsInt("SIDE_EFFECT_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.OtelEndpoint = getEnv("OTEL_ENDPOINT", "")
	cfg.StoragePath = getEnv("STORAGE_PATH", "./data")

	if cfg.CheckInHour, err = getEnvAsInt("CHECK_IN_HOUR", 15); err != nil {
		return nil, err
	}
	if cfg.CheckOutHour, err = getEnvAsInt("CHECK_OUT_HOUR", 11); err != nil {
		return nil, err
	}
	if cfg.CheckInHour < 0 || cfg.CheckInHour > 23 || cfg.CheckOutHour < 0 || cfg.CheckOutHour > 23 {
		return nil, fmt.Errorf("CHECK_IN_HOUR and CHECK_OUT_HOUR must be between 0 and 23")
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsDuration parses values like "15m" or "1h".
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	return val, nil
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
