// Command broker starts the khbroker matching-and-accounting HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/khbroker/internal/adapter/httpserver"
	"github.com/fairyhunter13/khbroker/internal/adapter/observability"
	"github.com/fairyhunter13/khbroker/internal/app"
	"github.com/fairyhunter13/khbroker/internal/config"
	"github.com/fairyhunter13/khbroker/internal/domain"
	"github.com/fairyhunter13/khbroker/internal/engine"
	"github.com/fairyhunter13/khbroker/internal/janitor"
	"github.com/fairyhunter13/khbroker/internal/kudos/registry"
	"github.com/fairyhunter13/khbroker/internal/persistence"
)

// buildModelRegistry composes the model-registry collaborator chain:
// the real upstream (or the embedded fallback table if no URL is
// configured) wrapped in backoff/circuit-breaker resilience, fronted by
// a shared Redis cache when REDIS_URL is set.
func buildModelRegistry(cfg config.Config, logger *slog.Logger) (domain.ModelRegistry, error) {
	var upstream domain.ModelRegistry
	if cfg.ModelRegistryURL != "" {
		upstream = registry.NewResilient(
			registry.NewHTTPClient(cfg.ModelRegistryURL, cfg.ModelRegistryTimeout),
			"model_registry",
			cfg.ModelRegistryBreakerMaxFail,
			cfg.ModelRegistryBreakerTimeout,
			cfg.RegistryBackoffMaxElapsedTime,
			cfg.RegistryBackoffInitialInterval,
			cfg.RegistryBackoffMaxInterval,
			cfg.RegistryBackoffMultiplier,
		)
	} else {
		embedded, err := registry.NewEmbedded()
		if err != nil {
			return nil, fmt.Errorf("op=main.buildModelRegistry: %w", err)
		}
		upstream = embedded
	}

	if cfg.RedisURL == "" {
		return upstream, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("op=main.buildModelRegistry: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	return registry.NewRedisCache(rdb, upstream, cfg.ModelMultiplierCacheTTL, logger), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	modelRegistry, err := buildModelRegistry(cfg, logger)
	if err != nil {
		slog.Error("model registry setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := persistence.NewStore(cfg.PersistenceDir)
	if err != nil {
		slog.Error("persistence store setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	eng := engine.New(logger, domain.RealClock{}, modelRegistry, cfg.AllowAnonymous)

	if err := persistence.Bootstrap(store, eng, time.Now()); err != nil {
		slog.Error("persistence bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	readyCheck := app.BuildReadinessCheck(store)
	if err := readyCheck(context.Background()); err != nil {
		slog.Error("persistence directory not writable at startup", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := janitor.NewPromptSweeper(logger, eng.SweepStalePrompts)
	go sweeper.Run(ctx)

	writer := janitor.NewSnapshotWriter(logger, cfg.SnapshotInterval, func() error {
		return persistence.Snapshot(store, eng)
	})
	go writer.Run(ctx)

	srv := httpserver.NewServer(cfg, eng, store)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer shutdownCancel()
	_ = srvHTTP.Shutdown(shutdownCtx)

	if err := persistence.Snapshot(store, eng); err != nil {
		slog.Error("final snapshot failed", slog.Any("error", err))
	}
}
