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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dunamismax/vectorstudio/internal/analysis"
	"github.com/dunamismax/vectorstudio/internal/api"
	"github.com/dunamismax/vectorstudio/internal/bootstrap"
	"github.com/dunamismax/vectorstudio/internal/config"
	"github.com/dunamismax/vectorstudio/internal/logging"
	"github.com/dunamismax/vectorstudio/internal/presets"
	"github.com/dunamismax/vectorstudio/internal/queue"
	"github.com/dunamismax/vectorstudio/internal/ratelimit"
	"github.com/dunamismax/vectorstudio/internal/telemetry"
	"github.com/dunamismax/vectorstudio/internal/worker"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}, "api")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api failed")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:    "vectorstudio-api",
		ServiceVersion: version,
		Exporter:       cfg.Tracing.Exporter,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		OTLPInsecure:   cfg.Tracing.OTLPInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	if err := analysis.Startup(); err != nil {
		return fmt.Errorf("start image runtime: %w", err)
	}
	defer analysis.Shutdown()
	analyzer, err := analysis.NewAnalyzer()
	if err != nil {
		return err
	}

	objects, err := bootstrap.OpenObjects(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	stores, err := bootstrap.OpenStores(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn().Err(err).Msg("store close failed")
		}
	}()

	catalog, err := presets.Load(cfg.Presets.File)
	if err != nil {
		return fmt.Errorf("load presets: %w", err)
	}
	if cfg.Presets.File != "" && cfg.Presets.Watch {
		watcher := presets.NewWatcher(cfg.Presets.File, catalog, logger.With().Str("watcher", "presets").Logger())
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Warn().Err(err).Msg("preset watcher stopped")
			}
		}()
	}

	// inline runs outlive request contexts; they are cancelled after the HTTP server drains
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	var (
		dispatcher api.Dispatcher
		inline     *worker.InlineDispatcher
	)
	switch cfg.API.Dispatch {
	case config.DispatchAsynq:
		queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name)
		defer func() {
			if err := queueClient.Close(); err != nil {
				logger.Warn().Err(err).Msg("queue client close failed")
			}
		}()
		dispatcher = queueClient
	default:
		runnerLogger := logging.New(os.Stdout, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}, "runner")
		runner, err := bootstrap.NewRunner(cfg, stores, objects, runnerLogger)
		if err != nil {
			return fmt.Errorf("build runner: %w", err)
		}
		inline = worker.NewInlineDispatcher(runCtx, runner, runnerLogger)
		dispatcher = inline
	}

	limiter, closeLimiter, err := newRateLimiter(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	app, err := api.NewServer(api.Config{
		Logger:       logger,
		Uploads:      stores.Uploads,
		Jobs:         stores.Jobs,
		Objects:      objects,
		Dispatcher:   dispatcher,
		Analyzer:     analyzer,
		Presets:      catalog,
		RateLimiter:  limiter,
		UserIDHeader: cfg.API.UserIDHeader,
		PresignTTL:   cfg.API.PresignTTL,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.API.Addr).
			Str("dispatch", cfg.API.Dispatch).
			Str("storage", cfg.Storage.Backend).
			Str("version", version).
			Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info().Msg("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
	}
	cancelRuns()
	if inline != nil {
		inline.Wait()
	}
	return nil
}

// newRateLimiter shares buckets through Redis when the API already depends on it
// and falls back to a per-process bucket otherwise.
func newRateLimiter(cfg config.Config, logger zerolog.Logger) (ratelimit.Limiter, func(), error) {
	noop := func() {}
	if cfg.RateLimit.Capacity <= 0 {
		logger.Info().Msg("rate limiting disabled")
		return nil, noop, nil
	}

	rule := ratelimit.Rule{Capacity: cfg.RateLimit.Capacity, Window: cfg.RateLimit.Window}
	if cfg.API.Dispatch != config.DispatchAsynq {
		limiter, err := ratelimit.NewMemoryTokenBucket(rule)
		if err != nil {
			return nil, noop, fmt.Errorf("build rate limiter: %w", err)
		}
		return limiter, noop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
	})
	limiter, err := ratelimit.NewRedisTokenBucket(client, rule, ratelimit.DefaultKeyPrefix)
	if err != nil {
		_ = client.Close()
		return nil, noop, fmt.Errorf("build rate limiter: %w", err)
	}
	return limiter, func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("redis client close failed")
		}
	}, nil
}
