package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer        string // Issuer claim for session tokens (default: warden)
	SessionSecret string // Optional: HS256 signing secret; generated per process when unset

	DatabaseFile string // Optional: path to SQLite database file (default: ./warden.db)
	PepperFile   string // Optional: path to password pepper file (default: ./pepper)

	SeedAdminUsername string // Optional: first-run admin username (default: admin)
	SeedAdminPassword string // Optional: first-run admin password; seeding skipped when unset

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	SessionTTL     time.Duration // Session token lifetime (default: 12h)
	AttemptTTL     time.Duration // Login attempt lifetime (default: 10m)
	AttemptCeiling int           // Failed submissions per factor before lockout (default: 5)
}

func LoadConfig() Config {
	return Config{
		Issuer:        getEnvOrDefault("WARDEN_ISSUER", "warden"),
		SessionSecret: os.Getenv("WARDEN_SESSION_SECRET"),

		DatabaseFile: getEnvOrDefault("WARDEN_DATABASE_FILE", "warden.db"),
		PepperFile:   getEnvOrDefault("WARDEN_PEPPER_FILE", "pepper"),

		SeedAdminUsername: getEnvOrDefault("WARDEN_SEED_ADMIN_USERNAME", "admin"),
		SeedAdminPassword: os.Getenv("WARDEN_SEED_ADMIN_PASSWORD"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		SessionTTL:     getEnvDurationOrDefault("WARDEN_SESSION_TTL", 12*time.Hour),
		AttemptTTL:     getEnvDurationOrDefault("WARDEN_ATTEMPT_TTL", 10*time.Minute),
		AttemptCeiling: getEnvIntOrDefault("WARDEN_ATTEMPT_CEILING", 5),
	}
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

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
