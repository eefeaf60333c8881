package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	DispatchInline = "inline"
	DispatchAsynq  = "asynq"

	StorageLocal = "local"
	StorageMinio = "minio"
)

type Config struct {
	API       APIConfig
	Queue     QueueConfig
	Worker    WorkerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Tracing   TracingConfig
	Log       LogConfig
	Presets   PresetsConfig
}

type APIConfig struct {
	Addr         string
	Dispatch     string
	PresignTTL   time.Duration
	UserIDHeader string
}

type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Name          string
}

func (q QueueConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

type WorkerConfig struct {
	Concurrency   int
	MaxActiveJobs int
	TickInterval  time.Duration
	MaxActiveTime time.Duration
	MetricsAddr   string
}

type StorageConfig struct {
	Backend   string
	LocalDir  string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type DatabaseConfig struct {
	DSN string
}

type RateLimitConfig struct {
	Capacity int
	Window   time.Duration
}

type WebhookConfig struct {
	SigningSecret string
	Timeout       time.Duration
	MaxAttempts   int
}

type TracingConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

type LogConfig struct {
	Level  string
	Format string
}

type PresetsConfig struct {
	File  string
	Watch bool
}

// Default returns the configuration used when neither a file nor the environment
// overrides a value.
func Default() Config {
	defaultWorkerSlots := max(1, runtime.NumCPU()/2)

	return Config{
		API: APIConfig{
			Addr:         ":8080",
			Dispatch:     DispatchInline,
			PresignTTL:   15 * time.Minute,
			UserIDHeader: "X-User-ID",
		},
		Queue: QueueConfig{
			RedisAddr: "localhost:6379",
			Name:      "vectorize",
		},
		Worker: WorkerConfig{
			Concurrency:   max(2, runtime.NumCPU()),
			MaxActiveJobs: defaultWorkerSlots,
			TickInterval:  150 * time.Millisecond,
			MaxActiveTime: 5 * time.Minute,
			MetricsAddr:   ":9091",
		},
		Storage: StorageConfig{
			Backend:   StorageLocal,
			LocalDir:  "./.vectorstudio-data",
			Endpoint:  "localhost:9000",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Bucket:    "vectorstudio",
		},
		RateLimit: RateLimitConfig{
			Window: time.Minute,
		},
		Webhook: WebhookConfig{
			Timeout:     10 * time.Second,
			MaxAttempts: 3,
		},
		Tracing: TracingConfig{
			Exporter: "none",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file named by
// RV0_CONFIG_FILE, and then the environment. Environment values win.
func Load() (Config, error) {
	cfg := Default()

	if path := env("RV0_CONFIG_FILE", ""); path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
		if err := ApplyFile(&cfg, fc); err != nil {
			return Config{}, fmt.Errorf("apply config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.API.Dispatch {
	case DispatchInline, DispatchAsynq:
	default:
		return fmt.Errorf("unsupported dispatch mode: %s", c.API.Dispatch)
	}
	switch c.Storage.Backend {
	case StorageLocal:
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			return fmt.Errorf("local storage requires a directory")
		}
	case StorageMinio:
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return fmt.Errorf("minio storage requires a bucket")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}
	if c.API.Dispatch == DispatchAsynq && strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("asynq dispatch requires POSTGRES_DSN so api and worker share job state")
	}
	if c.Worker.TickInterval <= 0 {
		return fmt.Errorf("worker tick interval must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.API.Addr = env("RV0_API_ADDR", cfg.API.Addr)
	cfg.API.Dispatch = strings.ToLower(env("RV0_DISPATCH", cfg.API.Dispatch))
	cfg.API.PresignTTL = envDuration("RV0_PRESIGN_TTL", cfg.API.PresignTTL)
	cfg.API.UserIDHeader = env("RV0_USER_ID_HEADER", cfg.API.UserIDHeader)

	cfg.Queue.RedisAddr = env("REDIS_ADDR", cfg.Queue.RedisAddr)
	cfg.Queue.RedisPassword = env("REDIS_PASSWORD", cfg.Queue.RedisPassword)
	cfg.Queue.RedisDB = envInt("REDIS_DB", cfg.Queue.RedisDB)
	cfg.Queue.Name = env("ASYNC_QUEUE", cfg.Queue.Name)

	cfg.Worker.Concurrency = envInt("WORKER_CONCURRENCY", cfg.Worker.Concurrency)
	cfg.Worker.MaxActiveJobs = envInt("WORKER_MAX_ACTIVE_JOBS", cfg.Worker.MaxActiveJobs)
	cfg.Worker.TickInterval = envDuration("WORKER_TICK_INTERVAL", cfg.Worker.TickInterval)
	cfg.Worker.MaxActiveTime = envDuration("WORKER_MAX_ACTIVE_TIME", cfg.Worker.MaxActiveTime)
	cfg.Worker.MetricsAddr = env("WORKER_METRICS_ADDR", cfg.Worker.MetricsAddr)

	cfg.Storage.Backend = strings.ToLower(env("RV0_STORAGE_BACKEND", cfg.Storage.Backend))
	cfg.Storage.LocalDir = env("RV0_LOCAL_DIR", cfg.Storage.LocalDir)
	cfg.Storage.Endpoint = env("MINIO_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.AccessKey = env("MINIO_ACCESS_KEY", cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = env("MINIO_SECRET_KEY", cfg.Storage.SecretKey)
	cfg.Storage.Bucket = env("MINIO_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.UseSSL = envBool("MINIO_USE_SSL", cfg.Storage.UseSSL)

	cfg.Database.DSN = env("POSTGRES_DSN", cfg.Database.DSN)

	cfg.RateLimit.Capacity = envInt("RV0_RATE_LIMIT_CAPACITY", cfg.RateLimit.Capacity)
	cfg.RateLimit.Window = envDuration("RV0_RATE_LIMIT_WINDOW", cfg.RateLimit.Window)

	cfg.Webhook.SigningSecret = env("RV0_WEBHOOK_SECRET", cfg.Webhook.SigningSecret)
	cfg.Webhook.Timeout = envDuration("RV0_WEBHOOK_TIMEOUT", cfg.Webhook.Timeout)
	cfg.Webhook.MaxAttempts = envInt("RV0_WEBHOOK_MAX_ATTEMPTS", cfg.Webhook.MaxAttempts)

	cfg.Tracing.Exporter = env("OTEL_TRACES_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.OTLPEndpoint = env("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)
	cfg.Tracing.OTLPInsecure = envBool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Tracing.OTLPInsecure)

	cfg.Log.Level = env("RV0_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = env("RV0_LOG_FORMAT", cfg.Log.Format)

	cfg.Presets.File = env("RV0_PRESETS_FILE", cfg.Presets.File)
	cfg.Presets.Watch = envBool("RV0_PRESETS_WATCH", cfg.Presets.Watch)
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
