package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read before any other source.
const (
	EnvPrefix     = "PAUTA_"
	EnvConfigFile = "PAUTA_CONFIG"
	EnvDotenvFile = "PAUTA_DOTENV"
)

// Load builds a Config by layering defaults, an optional .env file, an
// optional YAML file and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env file if PAUTA_DOTENV is set; it never overrides the real environment
//  3. file (YAML) if PAUTA_CONFIG is set
//  4. env (prefix PAUTA_)
func Load(_ context.Context) (*Config, error) {
	if path := os.Getenv(EnvDotenvFile); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("%w: dotenv %s: %w", ErrLoadConfig, path, err)
		}
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PAUTA_GRACE_PERIOD_DAYS -> grace_period_days. Underscores are kept to
	// match the flat koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New()
	// Decoding into a non-nil slice keeps trailing defaults, so lists start
	// empty and fall back afterwards.
	primary, secondary := cfg.PrimaryPrefixes, cfg.SecondaryPrefixes
	cfg.PrimaryPrefixes, cfg.SecondaryPrefixes = nil, nil
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if cfg.PrimaryPrefixes == nil {
		cfg.PrimaryPrefixes = primary
	}
	if cfg.SecondaryPrefixes == nil {
		cfg.SecondaryPrefixes = secondary
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
