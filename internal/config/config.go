// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development, except for
// the token signing key, which has no default anywhere.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MinProductionSecretLen is the shortest SECRET_KEY accepted in production.
const MinProductionSecretLen = 32

// ErrMissingSecretKey is returned by Load when SECRET_KEY is unset or blank.
var ErrMissingSecretKey = errors.New("SECRET_KEY is required")

// DefaultTrustedProxies covers loopback, the Docker bridge ranges, and
// private LANs.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"fd00::/8",
}

// User store backends selectable with USER_STORE.
const (
	StoreMariaDB = "mariadb"
	StoreMemory  = "memory"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL, also the default CORS origin.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	// Empty means debug in development and info elsewhere.
	LogLevel string

	// CORSOrigins lists extra origins allowed to call the API.
	CORSOrigins []string

	// TrustedProxies lists the CIDRs whose X-Forwarded-For headers are
	// believed when resolving the client IP.
	TrustedProxies []string

	// UserStore selects the user record backend: "mariadb" or "memory".
	UserStore string

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings for the identity cache.
	Redis RedisConfig

	// Auth holds authentication-related settings.
	Auth AuthConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so container
// orchestrators can manage each independently. If DATABASE_URL is set, it
// takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	User     string
	Password string
	Name     string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// fields using the driver's Config.FormatDSN() so special characters in
// passwords are escaped.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	// Empty disables the identity cache.
	URL string

	// IdentityTTL is how long a resolved identity stays cached.
	IdentityTTL time.Duration
}

// Enabled reports whether a Redis URL was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// SecretKey is the HMAC-SHA256 key that signs and verifies session tokens.
	SecretKey string

	// TokenTTL is how long an issued session token stays valid.
	TokenTTL time.Duration

	// CookieName is the cookie consulted when no bearer header is present.
	CookieName string

	// HashWorkers bounds concurrent password hash computations.
	// Zero means one per CPU.
	HashWorkers int
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing or malformed.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnvInt("PORT", 8080),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:       getEnv("LOG_LEVEL", ""),
		CORSOrigins:    getEnvList("CORS_ORIGINS"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		UserStore:      strings.ToLower(getEnv("USER_STORE", StoreMariaDB)),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "ludwig"),
			Password:        getEnv("DB_PASSWORD", "ludwig"),
			Name:            getEnv("DB_NAME", "ludwig"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", ""),
			IdentityTTL: getEnvDuration("IDENTITY_CACHE_TTL", 30*time.Second),
		},

		Auth: AuthConfig{
			SecretKey:   getEnv("SECRET_KEY", ""),
			TokenTTL:    time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
			CookieName:  getEnv("AUTH_COOKIE_NAME", "auth_token"),
			HashWorkers: getEnvInt("HASH_WORKERS", 0),
		},
	}

	if cfg.TrustedProxies == nil {
		cfg.TrustedProxies = DefaultTrustedProxies
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that must hold before the server starts.
// There is no fallback signing key: a missing one is fatal in every
// environment.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		return ErrMissingSecretKey
	}
	if c.IsProduction() && len(c.Auth.SecretKey) < MinProductionSecretLen {
		return fmt.Errorf("SECRET_KEY must be at least %d characters in production", MinProductionSecretLen)
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must not be negative")
	}
	if c.Auth.CookieName == "" {
		return fmt.Errorf("AUTH_COOKIE_NAME must not be empty")
	}
	switch c.UserStore {
	case StoreMariaDB, StoreMemory:
	default:
		return fmt.Errorf("USER_STORE must be %q or %q, got %q", StoreMariaDB, StoreMemory, c.UserStore)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true for "production" and its common variants.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// AllowedOrigins returns BaseURL followed by any CORS_ORIGINS entries.
func (c *Config) AllowedOrigins() []string {
	return append([]string{c.BaseURL}, c.CORSOrigins...)
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "30s") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var, dropping blank entries.
func getEnvList(key string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
