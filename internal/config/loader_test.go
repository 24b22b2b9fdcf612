package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pauta/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.ContenciosoThreshold, convey.ShouldEqual, 2)
				convey.So(cfg.GracePeriodDays, convey.ShouldEqual, 5)
				convey.So(cfg.PrimaryPrefixes, convey.ShouldResemble, config.New().PrimaryPrefixes)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PAUTA_ADDR", ":8080")
			_ = os.Setenv("PAUTA_CONTENCIOSO_THRESHOLD", "3")
			_ = os.Setenv("PAUTA_GRACE_PERIOD_DAYS", "10")
			_ = os.Setenv("PAUTA_FINAL_POLICY", "strict")
			_ = os.Setenv("PAUTA_CACHE", "memory")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ContenciosoThreshold, convey.ShouldEqual, 3)
				convey.So(cfg.GracePeriodDays, convey.ShouldEqual, 10)
				convey.So(cfg.FinalPolicy, convey.ShouldEqual, "strict")
				convey.So(cfg.Cache, convey.ShouldEqual, config.CacheMemory)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# school-specific overrides
addr: ":9090"
contencioso_threshold: 4
grace_period_days: 7
primary_prefixes:
  - "Iniciação"
  - "1ª Classe"
cache_ttl_seconds: 60
classes:
  10A: "10ª Classe A"
  3B: "3ª Classe B"
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("PAUTA_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ContenciosoThreshold, convey.ShouldEqual, 4)
				convey.So(cfg.GracePeriodDays, convey.ShouldEqual, 7)
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 60)
				convey.So(cfg.Classes, convey.ShouldResemble, map[string]string{
					"10A": "10ª Classe A",
					"3B":  "3ª Classe B",
				})
			})

			convey.Convey("Then lists replace the defaults entirely", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.PrimaryPrefixes, convey.ShouldResemble, []string{"Iniciação", "1ª Classe"})
				convey.So(cfg.SecondaryPrefixes, convey.ShouldResemble, config.New().SecondaryPrefixes)
			})

			convey.Convey("And env vars are also set", func() {
				_ = os.Setenv("PAUTA_GRACE_PERIOD_DAYS", "2")
				cfg, err := config.Load(ctx)

				convey.Convey("Then env wins over the file", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(cfg.GracePeriodDays, convey.ShouldEqual, 2)
					convey.So(cfg.ContenciosoThreshold, convey.ShouldEqual, 4)
				})
			})
		})

		convey.Convey("When a .env file is named", func() {
			dotenv := filepath.Join(t.TempDir(), "pauta.env")
			convey.So(os.WriteFile(dotenv, []byte("PAUTA_STORAGE=postgres\nPAUTA_POSTGRES_DSN=postgres://localhost/pauta\n"), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("PAUTA_DOTENV", dotenv)

			cfg, err := config.Load(ctx)

			convey.Convey("Then its variables are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Storage, convey.ShouldEqual, config.StoragePostgres)
				convey.So(cfg.PostgresDSN, convey.ShouldEqual, "postgres://localhost/pauta")
			})
		})

		convey.Convey("When the named .env file is missing", func() {
			_ = os.Setenv("PAUTA_DOTENV", filepath.Join(t.TempDir(), "absent.env"))
			cfg, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-existent file", func() {
			_ = os.Setenv("PAUTA_CONFIG", "/non/existent/pauta.yaml")
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid YAML", func() {
			tmpFile := createTempConfigFile(t, "addr: [unclosed\n")
			_ = os.Setenv("PAUTA_CONFIG", tmpFile)
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a value fails validation", func() {
			_ = os.Setenv("PAUTA_CONTENCIOSO_THRESHOLD", "0")
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a number is malformed", func() {
			_ = os.Setenv("PAUTA_GRACE_PERIOD_DAYS", "five")
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"PAUTA_CONFIG",
		"PAUTA_DOTENV",
		"PAUTA_ADDR",
		"PAUTA_CONTENCIOSO_THRESHOLD",
		"PAUTA_GRACE_PERIOD_DAYS",
		"PAUTA_FINAL_POLICY",
		"PAUTA_CACHE",
		"PAUTA_STORAGE",
		"PAUTA_POSTGRES_DSN",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "pauta.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
