package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration required by the API process.
// All values come from env (optionally seeded from a .env file).
// No business logic should depend on raw environment variables.
//
// Nested structs carry full variable names in their tags; envconfig looks up
// the prefixed name first and falls back to the tag as written.
type Config struct {
	App     AppConfig
	Store   StoreConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Admin   AdminConfig
	Pricing PricingConfig
}

type AppConfig struct {
	Env  string `envconfig:"APP_ENV"`
	Port int    `envconfig:"APP_PORT" default:"8080"`

	// LogLevel overrides the per-environment default (debug, info, warn, error).
	LogLevel string `envconfig:"LOG_LEVEL"`
}

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type StoreConfig struct {
	// Backend selects where overrides and the week boundary live.
	// memory is single-process only.
	Backend string `envconfig:"STORE_BACKEND" default:"memory"`
	// RedisPrefix namespaces keys when Backend is redis.
	RedisPrefix string `envconfig:"STORE_REDIS_PREFIX" default:"pricing"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME"`

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string `envconfig:"DB_SSLMODE"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB"`
}

type AuthConfig struct {
	JWTSecret       string        `envconfig:"JWT_SECRET"`
	JWTIssuer       string        `envconfig:"JWT_ISSUER"`
	JWTAudience     string        `envconfig:"JWT_AUDIENCE"`
	AccessTokenTTL  time.Duration `envconfig:"JWT_ACCESS_TTL"`
	RefreshTokenTTL time.Duration `envconfig:"JWT_REFRESH_TTL"`
}

// AdminConfig is the single site-owner login used to obtain admin tokens.
type AdminConfig struct {
	UserID string `envconfig:"ADMIN_USER" default:"owner"`
	// PasswordHash is an argon2id hash from auth.HashPassword. Empty disables
	// token issuance.
	PasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`
	Role         string `envconfig:"ADMIN_ROLE" default:"owner"`
}

type PricingConfig struct {
	// Timezone is an IANA name defining "Sunday" and the late window.
	// Empty means the host's local time.
	Timezone       string        `envconfig:"PRICING_TIMEZONE"`
	DefaultNightly float64       `envconfig:"PRICING_DEFAULT_NIGHTLY" default:"100"`
	RevertInterval time.Duration `envconfig:"PRICING_REVERT_INTERVAL" default:"5m"`
	RatesFile      string        `envconfig:"PRICING_RATES_FILE"`
}

// Load reads ./.env when present, then the environment.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile seeds the environment from path (ignored when missing) and builds
// a validated Config. Variables already set in the environment win.
func LoadFile(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	c.App.Env = strings.TrimSpace(c.App.Env)
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every problem at once and fills env-dependent defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	switch c.Store.Backend {
	case BackendMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("STORE_BACKEND=memory is not durable; use postgres or redis in production"))
		}
	case BackendPostgres:
		errs = append(errs, c.validateDB()...)
	case BackendRedis:
		errs = append(errs, c.validateRedis()...)
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be one of memory, postgres, redis, got %q", c.Store.Backend))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
		if c.Admin.PasswordHash == "" {
			errs = append(errs, errors.New("ADMIN_PASSWORD_HASH is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		// Default: short-lived access tokens.
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("PRICING_TIMEZONE: %w", err))
	}
	if math.IsNaN(c.Pricing.DefaultNightly) || math.IsInf(c.Pricing.DefaultNightly, 0) || c.Pricing.DefaultNightly <= 0 {
		errs = append(errs, fmt.Errorf("PRICING_DEFAULT_NIGHTLY must be > 0, got %v", c.Pricing.DefaultNightly))
	}
	if c.Pricing.RevertInterval < 0 {
		errs = append(errs, fmt.Errorf("PRICING_REVERT_INTERVAL must not be negative, got %s", c.Pricing.RevertInterval))
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c *Config) validateRedis() []error {
	var errs []error
	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// Location resolves PRICING_TIMEZONE. Empty means time.Local.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Pricing.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
