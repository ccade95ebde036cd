package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:     AppConfig{Env: "local", Port: 8080},
		Store:   StoreConfig{Backend: BackendMemory},
		Auth:    AuthConfig{JWTSecret: "secret"},
		Pricing: PricingConfig{DefaultNightly: 100, RevertInterval: 5 * time.Minute},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "STORE_BACKEND", "JWT_SECRET", "PRICING_DEFAULT_NIGHTLY"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}
}

func TestValidate_LocalMemoryIsValid(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected default access ttl, got %s", c.Auth.AccessTokenTTL)
	}
}

func TestValidate_ProductionRejectsMemoryBackend(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "kolake"
	c.Auth.JWTAudience = "admin"
	c.Admin.PasswordHash = "$2a$10$x"
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "STORE_BACKEND=memory") {
		t.Fatalf("expected memory backend rejected in production, got %v", err)
	}
}

func TestValidate_PostgresRequiresDB(t *testing.T) {
	c := validLocal()
	c.Store.Backend = BackendPostgres
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "DB_HOST") {
		t.Fatalf("expected DB_HOST error, got %v", err)
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validLocal()
	c.Store.Backend = BackendPostgres
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "kolake"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_RedisRequiresHost(t *testing.T) {
	c := validLocal()
	c.Store.Backend = BackendRedis
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "REDIS_HOST") {
		t.Fatalf("expected REDIS_HOST error, got %v", err)
	}
}

func TestValidate_RejectsUnknownTimezone(t *testing.T) {
	c := validLocal()
	c.Pricing.Timezone = "Mars/Olympus_Mons"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "PRICING_TIMEZONE") {
		t.Fatalf("expected timezone error, got %v", err)
	}
}

func TestLocation_EmptyMeansLocal(t *testing.T) {
	loc, err := Config{}.Location()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if loc != time.Local {
		t.Fatalf("expected time.Local, got %v", loc)
	}
}

func TestLoadFile_ReadsEnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	body := "APP_ENV=dev\nJWT_SECRET=from-file\nPRICING_TIMEZONE=Asia/Colombo\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	// The real environment wins over the file.
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("PRICING_DEFAULT_NIGHTLY", "120.5")
	// godotenv writes into the process env; register cleanup for the keys it sets.
	t.Setenv("APP_ENV", "")
	os.Unsetenv("APP_ENV")
	t.Setenv("PRICING_TIMEZONE", "")
	os.Unsetenv("PRICING_TIMEZONE")

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.Env != "dev" || c.App.Port != 9090 {
		t.Fatalf("unexpected app config: %+v", c.App)
	}
	if c.Auth.JWTSecret != "from-env" {
		t.Fatalf("expected env to win, got %q", c.Auth.JWTSecret)
	}
	if c.Store.Backend != BackendMemory || c.Pricing.RevertInterval != 5*time.Minute {
		t.Fatalf("expected defaults, got %+v %+v", c.Store, c.Pricing)
	}
	if c.Pricing.DefaultNightly != 120.5 {
		t.Fatalf("expected default nightly 120.5, got %v", c.Pricing.DefaultNightly)
	}
	loc, err := c.Location()
	if err != nil || loc.String() != "Asia/Colombo" {
		t.Fatalf("expected Asia/Colombo, got %v (%v)", loc, err)
	}
}

func TestLoadFile_MissingFileIsIgnored(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("JWT_SECRET", "s")
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing .env ignored, got %v", err)
	}
}
