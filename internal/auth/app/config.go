package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // Issuer claim for tokens (default: tokengate)

	Algorithm      string        // JWT signing algorithm (HS256, EdDSA) (default: HS256)
	Secret         string        // HS256 shared secret, at least 32 bytes. Generated per process when empty
	SigningKeyFile string        // EdDSA PKCS8 PEM key. Created on first start when missing
	AccessTTL      time.Duration // Access token lifetime (default: 15m)
	RefreshTTL     time.Duration // Refresh token lifetime (default: 24h)

	RevocationBackend string        // memory or redis (default: memory)
	RedisAddr         string        // Redis address (default: localhost:6379)
	RedisPassword     string        // Optional
	RedisDB           int           // Redis database number (default: 0)
	RedisTimeout      time.Duration // Dial, read and write timeout (default: 500ms)

	DatabaseFile         string        // Path to SQLite database file (default: ./auth.db)
	PepperFile           string        // Path to file containing pepper for password hashing (default: ./pepper)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Memory backend sweep interval (default: 1m)
	TrustProxyHeaders    bool          // Key rate limits on X-Forwarded-For / X-Real-IP (default: false)

	BootstrapAdminUsername string // Optional: admin created when the user table is empty
	BootstrapAdminPassword string
}

func LoadConfig() Config {
	return Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "tokengate"),
		Algorithm:      getEnvOrDefault("AUTH_ALGORITHM", "HS256"),
		Secret:         os.Getenv("AUTH_SECRET"),
		SigningKeyFile: os.Getenv("AUTH_SIGNING_KEY_FILE"),
		AccessTTL:      getEnvDurationOrDefault("AUTH_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:     getEnvDurationOrDefault("AUTH_REFRESH_TTL", 24*time.Hour),

		RevocationBackend: getEnvOrDefault("REVOCATION_BACKEND", "memory"),
		RedisAddr:         getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvIntOrDefault("REDIS_DB", 0),
		RedisTimeout:      getEnvDurationOrDefault("REDIS_TIMEOUT", 500*time.Millisecond),

		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:           getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Minute),
		TrustProxyHeaders:    getEnvBoolOrDefault("RATELIMIT_TRUST_PROXY_HEADERS", false),

		BootstrapAdminUsername: os.Getenv("BOOTSTRAP_ADMIN_USERNAME"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
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

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
