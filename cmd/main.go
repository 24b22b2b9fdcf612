package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/pauta/internal/adapters/cache"
	"github.com/okian/pauta/internal/adapters/http/api"
	"github.com/okian/pauta/internal/adapters/http/swagger"
	"github.com/okian/pauta/internal/adapters/repository"
	service "github.com/okian/pauta/internal/app"
	"github.com/okian/pauta/internal/config"
	"github.com/okian/pauta/internal/domain/finance"
	"github.com/okian/pauta/internal/domain/grading"
	"github.com/okian/pauta/internal/domain/tier"
	"github.com/okian/pauta/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if cfg.LogJSON {
		_ = logger.Init(logger.WithJSON())
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	eng, err := build(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build engine", logger.Error(err))
		return
	}
	defer eng.close(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(eng.svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("storage", cfg.Storage),
			logger.String("cache", cfg.Cache),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// engine is the wired service plus the resources main must release.
type engine struct {
	svc     *service.Service
	closers []func() error
	logger  logger.Logger
}

func (e *engine) close(ctx context.Context) {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Warn(ctx, "close failed", logger.Error(err))
		}
	}
}

// build wires storage, cache and the domain policies selected by cfg.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*engine, error) {
	eng := &engine{logger: log}
	fail := func(err error) (*engine, error) {
		eng.close(ctx)
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	policy, err := grading.ParsePolicy(cfg.FinalPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	var store repository.Store
	switch cfg.Storage {
	case config.StoragePostgres:
		gs, err := repository.OpenPostgres(ctx, cfg.PostgresDSN, repository.WithLogger(log))
		if err != nil {
			return nil, err
		}
		store = gs
	default:
		store = repository.NewMemoryStore(repository.WithLogger(log))
	}
	eng.closers = append(eng.closers, store.Close)

	for id, designation := range cfg.Classes {
		if err := store.SetClassDesignation(ctx, id, designation); err != nil {
			return fail(fmt.Errorf("seed class %s: %w", id, err))
		}
	}

	var c cache.Cache
	switch cfg.Cache {
	case config.CacheMemory:
		c = cache.NewMemory(cache.WithTTL(cfg.CacheTTL()), cache.WithMaxEntries(cfg.CacheMaxEntries))
	case config.CacheRedis:
		rc, err := cache.Dial(ctx, cfg.RedisAddr, cache.WithTTL(cfg.CacheTTL()))
		if err != nil {
			return fail(err)
		}
		eng.closers = append(eng.closers, rc.Close)
		c = rc
	}

	opts := []service.Option{
		service.WithStore(store),
		service.WithLogger(log),
		service.WithFinalPolicy(policy),
		service.WithResolver(tier.NewPrefixResolver(
			tier.WithPrimaryPrefixes(cfg.PrimaryPrefixes),
			tier.WithSecondaryPrefixes(cfg.SecondaryPrefixes),
			tier.WithLogger(log),
		)),
		service.WithEvaluator(finance.NewEvaluator(
			finance.WithContenciosoThreshold(cfg.ContenciosoThreshold),
			finance.WithGracePeriodDays(cfg.GracePeriodDays),
			finance.WithLocation(loc),
		)),
	}
	if c != nil {
		catalog := repository.NewCachedCatalog(store, c, cfg.CacheTTL(), repository.WithLogger(log))
		// A shared cache may still hold designations from an earlier seed.
		for id := range cfg.Classes {
			if err := catalog.Forget(ctx, id); err != nil {
				return fail(err)
			}
		}
		opts = append(opts,
			service.WithGradeRepository(repository.NewCachedGrades(store, c, cfg.CacheTTL(), repository.WithLogger(log))),
			service.WithCatalog(catalog),
		)
	}

	eng.svc = service.New(opts...)
	return eng, nil
}
