package app

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	Issuer        string   // Issuer claim for tokens (default: haulage-auth)
	Audience      []string // Audience claim for access tokens, comma separated (default: haulage)
	AccessSecret  string   // HMAC secret for access tokens, required in production
	RefreshSecret string   // HMAC secret for refresh tokens, required in production and distinct
	AccessTTL     string   // ParseTTL syntax (default: 15m)
	RefreshTTL    string   // ParseTTL syntax (default: 7d)
	ResetTTL      string   // ParseTTL syntax (default: 1h)

	LoginMaxAttempts      int           // Failures in LoginWindow that lock an email (default: 5)
	LoginWindow           time.Duration // Trailing lockout window (default: 15m)
	StoreTimeout          time.Duration // Per-call revocation store timeout (default: 2s)
	DirectoryTimeout      time.Duration // Per-call account directory timeout (default: 3s)
	PasswordVerifyTimeout time.Duration // Cap on one password verification (default: 2s)

	RedisAddr       string        // Optional outside production: in-memory revocation store when empty
	RedisPassword   string        // Optional
	RedisDB         int           // Optional (default: 0)
	RedisKeyPrefix  string        // Optional: prefix for every key when the instance is shared
	RedisMaxRetries int           // Connection attempts (default: 5)
	RedisBackoffMax time.Duration // Cap between connection attempts (default: 5s)

	DatabaseFile string // Path to SQLite database file (default: ./auth.db)
	PepperFile   string // Path to file containing pepper for password hashing (default: ./pepper)

	KafkaBrokers     []string // Optional: log sink when empty
	KafkaNotifyTopic string   // Topic for reset notices (default: auth.notifications)
	KafkaAlertTopic  string   // Topic for security alerts (default: auth.security-alerts)
}

var (
	ErrRedisRequired  = errors.New("REDIS_ADDR is required in production")
	ErrInvalidSetting = errors.New("invalid setting")
)

// LoadConfig reads the environment. A .env file in the working directory is
// loaded first when present, real environment variables win over it.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring unreadable .env file", "error", err)
	}

	return Config{
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		Issuer:        getEnvOrDefault("AUTH_ISSUER", "haulage-auth"),
		Audience:      splitList(getEnvOrDefault("AUTH_AUDIENCE", "haulage")),
		AccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		AccessTTL:     getEnvOrDefault("ACCESS_TOKEN_TTL", "15m"),
		RefreshTTL:    getEnvOrDefault("REFRESH_TOKEN_TTL", "7d"),
		ResetTTL:      getEnvOrDefault("RESET_TOKEN_TTL", "1h"),

		LoginMaxAttempts:      getEnvIntOrDefault("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:           getEnvDurationOrDefault("LOGIN_WINDOW", 15*time.Minute),
		StoreTimeout:          getEnvDurationOrDefault("STORE_TIMEOUT", 2*time.Second),
		DirectoryTimeout:      getEnvDurationOrDefault("DIRECTORY_TIMEOUT", 3*time.Second),
		PasswordVerifyTimeout: getEnvDurationOrDefault("PASSWORD_VERIFY_TIMEOUT", 2*time.Second),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getEnvIntOrDefault("REDIS_DB", 0),
		RedisKeyPrefix:  os.Getenv("REDIS_KEY_PREFIX"),
		RedisMaxRetries: getEnvIntOrDefault("REDIS_MAX_RETRIES", 5),
		RedisBackoffMax: getEnvDurationOrDefault("REDIS_BACKOFF_MAX", 5*time.Second),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaNotifyTopic: getEnvOrDefault("KAFKA_NOTIFY_TOPIC", "auth.notifications"),
		KafkaAlertTopic:  getEnvOrDefault("KAFKA_ALERT_TOPIC", "auth.security-alerts"),
	}
}

// IsProduction reports whether ENV names a production deployment.
func (c Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// Validate checks settings that cannot be defaulted. Signing secrets are
// checked separately by LoadSecrets.
func (c Config) Validate() error {
	if c.IsProduction() && c.RedisAddr == "" {
		return ErrRedisRequired
	}
	if c.LoginMaxAttempts <= 0 {
		return errors.Join(ErrInvalidSetting, errors.New("LOGIN_MAX_ATTEMPTS must be positive"))
	}
	if c.LoginWindow <= 0 {
		return errors.Join(ErrInvalidSetting, errors.New("LOGIN_WINDOW must be positive"))
	}
	if c.Issuer == "" || len(c.Audience) == 0 {
		return errors.Join(ErrInvalidSetting, errors.New("AUTH_ISSUER and AUTH_AUDIENCE must not be empty"))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
