// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/pauta/internal/domain/finance"
	"github.com/okian/pauta/internal/domain/tier"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogJSON switches the log handler to JSON output.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// ContenciosoThreshold is how many overdue months hide a student's grades.
	ContenciosoThreshold int `koanf:"contencioso_threshold" validate:"min=1"`

	// GracePeriodDays is the countdown shown while the current month is unpaid.
	GracePeriodDays int `koanf:"grace_period_days" validate:"min=0"`

	// FinalPolicy is lenient (average what is present) or strict (need all three).
	FinalPolicy string `koanf:"final_policy" validate:"oneof=lenient strict"`

	// Timezone decides which calendar day "today" is for payment deadlines.
	Timezone string `koanf:"timezone" validate:"required,timezone"`

	// Storage selects the repository backend.
	Storage     string `koanf:"storage" validate:"oneof=memory postgres"`
	PostgresDSN string `koanf:"postgres_dsn" validate:"required_if=Storage postgres"`

	// Cache selects the read cache in front of grades and the class catalog.
	Cache           string `koanf:"cache" validate:"oneof=none memory redis"`
	RedisAddr       string `koanf:"redis_addr" validate:"required_if=Cache redis"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds" validate:"min=1"`
	CacheMaxEntries int    `koanf:"cache_max_entries" validate:"min=0"`

	// PrimaryPrefixes and SecondaryPrefixes override the class labels used to
	// pick the grading scale.
	PrimaryPrefixes   []string `koanf:"primary_prefixes" validate:"dive,required"`
	SecondaryPrefixes []string `koanf:"secondary_prefixes" validate:"dive,required"`

	// Classes seeds the class catalog at startup: class id -> designation.
	Classes map[string]string `koanf:"classes" validate:"dive,keys,required,endkeys,required"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		ContenciosoThreshold: finance.DefaultContenciosoThreshold,
		GracePeriodDays:      finance.DefaultGracePeriodDays,
		FinalPolicy:          "lenient",
		Timezone:             "UTC",
		Storage:              StorageMemory,
		Cache:                CacheNone,
		CacheTTLSeconds:      300,
		CacheMaxEntries:      10_000,
		PrimaryPrefixes:      append([]string(nil), tier.DefaultPrimaryPrefixes...),
		SecondaryPrefixes:    append([]string(nil), tier.DefaultSecondaryPrefixes...),
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// CacheTTL returns the cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}
