// Package bootstrap wires configuration into the storage, store and runner
// implementations shared by the API and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dunamismax/vectorstudio/internal/config"
	"github.com/dunamismax/vectorstudio/internal/storage"
	"github.com/dunamismax/vectorstudio/internal/store"
	"github.com/dunamismax/vectorstudio/internal/webhook"
	"github.com/dunamismax/vectorstudio/internal/worker"
)

// Stores bundles the persistence backends. Close releases the database pool when
// one was opened.
type Stores struct {
	Uploads store.UploadStore
	Jobs    store.JobStore
	Usage   store.UsageStore
	Close   func() error
}

func OpenStores(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (Stores, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		logger.Info().Msg("using in-memory stores")
		jobs := store.NewMemoryJobStore()
		return Stores{
			Uploads: store.NewMemoryUploadStore(),
			Jobs:    jobs,
			Usage:   jobs,
			Close:   func() error { return nil },
		}, nil
	}

	pg, err := store.NewPostgresStore(ctx, cfg.DSN)
	if err != nil {
		return Stores{}, fmt.Errorf("open postgres: %w", err)
	}
	logger.Info().Msg("using postgres stores")
	return Stores{Uploads: pg, Jobs: pg, Usage: pg, Close: pg.Close}, nil
}

func OpenObjects(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (storage.ObjectStore, error) {
	switch cfg.Backend {
	case config.StorageMinio:
		client, err := storage.NewClient(storage.Config{
			Endpoint: cfg.Endpoint,
			Access:   cfg.AccessKey,
			Secret:   cfg.SecretKey,
			Bucket:   cfg.Bucket,
			UseSSL:   cfg.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", client.Bucket()).Msg("using minio storage")
		return client, nil
	case config.StorageLocal, "":
		local, err := storage.NewLocal(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("dir", cfg.LocalDir).Msg("using local storage")
		return local, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

func NewRunner(cfg config.Config, stores Stores, objects storage.ObjectStore, logger zerolog.Logger) (*worker.Runner, error) {
	return worker.NewRunner(worker.RunnerConfig{
		Logger:   logger,
		Jobs:     stores.Jobs,
		Uploads:  stores.Uploads,
		Usage:    stores.Usage,
		Objects:  objects,
		Webhooks: webhook.NewClient(webhook.Config{
			SigningSecret: cfg.Webhook.SigningSecret,
			Timeout:       cfg.Webhook.Timeout,
			MaxAttempts:   cfg.Webhook.MaxAttempts,
		}),
		TickInterval:  cfg.Worker.TickInterval,
		MaxActiveJobs: cfg.Worker.MaxActiveJobs,
		MaxActiveTime: cfg.Worker.MaxActiveTime,
	})
}
