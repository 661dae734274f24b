// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
)

// devSecretKey is substituted for SECRET_KEY outside production so local
// development works without a .env file.
const devSecretKey = "dev-secret-key-do-not-use-in-production!!"

// Config holds all application configuration. Populated from environment
// variables once at startup and passed to other packages by pointer. Nothing
// mutates it after Load returns.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string `env:"ENV" envDefault:"development"`

	// Port is the HTTP listen port.
	Port int `env:"PORT" envDefault:"8000"`

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`

	// CORSOrigins lists the browser origins allowed to call the API with
	// credentials. Comma-separated in the environment.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`

	// TrustedProxies lists CIDRs whose forwarding headers are believed when
	// resolving the client address for rate limiting.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," envDefault:"127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,fd00::/8"`

	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently. If DATABASE_URL is
// set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format. If no port is
	// specified, 3306 is appended automatically.
	Host     string `env:"DB_HOST" envDefault:"localhost:3306"`
	User     string `env:"DB_USER" envDefault:"chimi"`
	Password string `env:"DB_PASSWORD" envDefault:"chimi"`
	Name     string `env:"DB_NAME" envDefault:"chimi"`

	// URL is a complete go-sql-driver DSN that bypasses the fields above.
	URL string `env:"DATABASE_URL"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"db/migrations"`
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// fields using the driver's Config.FormatDSN() to safely handle special
// characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Timeout = 30 * time.Second
	cfg.ReadTimeout = 60 * time.Second
	cfg.WriteTimeout = 60 * time.Second
	cfg.Params = map[string]string{"charset": "utf8mb4"}
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

// RedisConfig holds Redis connection parameters. Redis only backs the user
// lookup cache; leaving URL empty disables it.
type RedisConfig struct {
	URL      string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"USER_CACHE_TTL" envDefault:"30s"`
}

// Enabled reports whether a Redis URL was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// SecretKey signs session tokens. Rotating it logs everyone out.
	SecretKey string `env:"SECRET_KEY"`

	// TokenTTL is the lifetime of a session token and its cookie.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"30m"`

	// argon2id cost parameters for new password hashes.
	HashMemoryKiB  uint32 `env:"HASH_MEMORY_KIB" envDefault:"65536"`
	HashIterations uint32 `env:"HASH_ITERATIONS" envDefault:"3"`
	HashThreads    uint8  `env:"HASH_THREADS" envDefault:"4"`
}

// RateLimitConfig holds per-action request budgets per client address.
type RateLimitConfig struct {
	LoginLimit        int           `env:"LOGIN_RATE_LIMIT" envDefault:"5"`
	LoginWindow       time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`
	RegisterLimit     int           `env:"REGISTER_RATE_LIMIT" envDefault:"5"`
	RegisterWindow    time.Duration `env:"REGISTER_RATE_WINDOW" envDefault:"1m"`
	AdminVerifyLimit  int           `env:"ADMIN_VERIFY_RATE_LIMIT" envDefault:"5"`
	AdminVerifyWindow time.Duration `env:"ADMIN_VERIFY_RATE_WINDOW" envDefault:"1m"`
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if variables are malformed or production requirements
// are not met.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = devSecretKey
	}

	return cfg, nil
}

// validate checks invariants that env tags can't express.
func (c *Config) validate() error {
	if c.IsProduction() {
		if c.Auth.SecretKey == "" {
			return fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(c.Auth.SecretKey) < 32 {
			return fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Auth.HashIterations == 0 || c.Auth.HashMemoryKiB == 0 || c.Auth.HashThreads == 0 {
		return fmt.Errorf("argon2 cost parameters must be non-zero")
	}
	for name, limit := range map[string]int{
		"LOGIN_RATE_LIMIT":        c.RateLimit.LoginLimit,
		"REGISTER_RATE_LIMIT":     c.RateLimit.RegisterLimit,
		"ADMIN_VERIFY_RATE_LIMIT": c.RateLimit.AdminVerifyLimit,
	} {
		if limit <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, limit)
		}
	}
	return nil
}

// IsProduction returns true if running in production. Case-insensitive so
// common variants like "Production" and "prod" are caught.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// SecureCookies reports whether session cookies get the Secure flag. Only
// production deployments sit behind TLS.
func (c *Config) SecureCookies() bool {
	return c.IsProduction()
}
