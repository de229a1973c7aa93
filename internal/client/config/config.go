package config

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/dmitrijs2005/contactbook/internal/client/geocode"
	"github.com/dmitrijs2005/contactbook/internal/client/repositories/kvstore"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CONTACTBOOK_"

// Config holds runtime settings for the contactbook CLI.
type Config struct {
	StorageDriver string `env:"STORAGE_DRIVER, overwrite"`
	DatabaseDSN   string `env:"DATABASE_DSN, overwrite"`
	RedisAddr     string `env:"REDIS_ADDR, overwrite"`
	RedisDB       int    `env:"REDIS_DB, overwrite"`

	SimulateLatency bool `env:"SIMULATE_LATENCY, overwrite"`

	GeocoderURL          string        `env:"GEOCODER_URL, overwrite"`
	GeocoderUserAgent    string        `env:"GEOCODER_USER_AGENT, overwrite"`
	GeocoderCountryCodes string        `env:"GEOCODER_COUNTRY_CODES, overwrite"`
	GeocoderLanguage     string        `env:"GEOCODER_LANGUAGE, overwrite"`
	GeocoderSearch       bool          `env:"GEOCODER_SEARCH, overwrite"`
	GeocoderTimeout      time.Duration `env:"GEOCODER_TIMEOUT, overwrite"`

	LogLevel    string `env:"LOG_LEVEL, overwrite"`
	LogPretty   bool   `env:"LOG_PRETTY, overwrite"`
	MetricsAddr string `env:"METRICS_ADDR, overwrite"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.StorageDriver = kvstore.DriverSQLite
	c.DatabaseDSN = "contactbook.db"
	c.RedisAddr = "localhost:6379"
	c.RedisDB = 0
	c.SimulateLatency = true
	c.GeocoderURL = geocode.DefaultBaseURL
	c.GeocoderUserAgent = geocode.DefaultUserAgent
	c.GeocoderCountryCodes = geocode.DefaultCountry
	c.GeocoderLanguage = geocode.DefaultLanguage
	c.GeocoderSearch = true
	c.GeocoderTimeout = geocode.DefaultTimeout
	c.LogLevel = "warn"
	c.LogPretty = true
	c.MetricsAddr = ""
}

// Validate rejects settings the CLI cannot start with.
func (c *Config) Validate() error {
	drivers := []string{kvstore.DriverSQLite, kvstore.DriverPostgres, kvstore.DriverRedis, kvstore.DriverMemory}
	if !slices.Contains(drivers, c.StorageDriver) {
		return fmt.Errorf("%w: %q", kvstore.ErrUnknownDriver, c.StorageDriver)
	}
	if c.StorageDriver != kvstore.DriverMemory && c.StorageDriver != kvstore.DriverRedis && c.DatabaseDSN == "" {
		return fmt.Errorf("database_dsn is required for driver %q", c.StorageDriver)
	}
	if c.StorageDriver == kvstore.DriverPostgres && !isPostgresDSN(c.DatabaseDSN) {
		return fmt.Errorf("database_dsn must be a postgres URL or key=value DSN for driver %q, got %q", c.StorageDriver, c.DatabaseDSN)
	}
	if c.GeocoderTimeout < 0 {
		return fmt.Errorf("geocoder_timeout must not be negative")
	}
	return nil
}

// isPostgresDSN accepts the URL and keyword/value forms pgx parses.
func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "=")
}

// Load builds a Config by applying defaults, then the JSON file named in
// args, then environment variables from lookup, then flags from args.
// args excludes the program name. A nil lookup reads the process environment.
func Load(ctx context.Context, args []string, lookup envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(ctx, cfg, lookup); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
