package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to keep the TOML readable.
type FileConfig struct {
	API struct {
		Addr         string `toml:"addr"`
		Dispatch     string `toml:"dispatch"`
		PresignTTL   string `toml:"presign_ttl"`
		UserIDHeader string `toml:"user_id_header"`
	} `toml:"api"`
	Queue struct {
		RedisAddr string `toml:"redis_addr"`
		RedisDB   *int   `toml:"redis_db"`
		Name      string `toml:"name"`
	} `toml:"queue"`
	Worker struct {
		Concurrency   int    `toml:"concurrency"`
		MaxActiveJobs int    `toml:"max_active_jobs"`
		TickInterval  string `toml:"tick_interval"`
		MaxActiveTime string `toml:"max_active_time"`
		MetricsAddr   string `toml:"metrics_addr"`
	} `toml:"worker"`
	Storage struct {
		Backend  string `toml:"backend"`
		LocalDir string `toml:"local_dir"`
		Endpoint string `toml:"endpoint"`
		Bucket   string `toml:"bucket"`
		UseSSL   *bool  `toml:"use_ssl"`
	} `toml:"storage"`
	Database struct {
		DSN string `toml:"dsn"`
	} `toml:"database"`
	RateLimit struct {
		Capacity int    `toml:"capacity"`
		Window   string `toml:"window"`
	} `toml:"rate_limit"`
	Tracing struct {
		Exporter     string `toml:"exporter"`
		OTLPEndpoint string `toml:"otlp_endpoint"`
	} `toml:"tracing"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Presets struct {
		File  string `toml:"file"`
		Watch *bool  `toml:"watch"`
	} `toml:"presets"`
}

// LoadFile reads and parses a TOML config file from the given path.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// ApplyFile copies every value set in the file onto cfg. Secrets are
// environment-only and never read from the file.
func ApplyFile(cfg *Config, fc FileConfig) error {
	setString(fc.API.Addr, &cfg.API.Addr)
	setString(strings.ToLower(fc.API.Dispatch), &cfg.API.Dispatch)
	setString(fc.API.UserIDHeader, &cfg.API.UserIDHeader)
	if err := setDuration("api.presign_ttl", fc.API.PresignTTL, &cfg.API.PresignTTL); err != nil {
		return err
	}

	setString(fc.Queue.RedisAddr, &cfg.Queue.RedisAddr)
	setString(fc.Queue.Name, &cfg.Queue.Name)
	if fc.Queue.RedisDB != nil {
		cfg.Queue.RedisDB = *fc.Queue.RedisDB
	}

	setInt(fc.Worker.Concurrency, &cfg.Worker.Concurrency)
	setInt(fc.Worker.MaxActiveJobs, &cfg.Worker.MaxActiveJobs)
	setString(fc.Worker.MetricsAddr, &cfg.Worker.MetricsAddr)
	if err := setDuration("worker.tick_interval", fc.Worker.TickInterval, &cfg.Worker.TickInterval); err != nil {
		return err
	}
	if err := setDuration("worker.max_active_time", fc.Worker.MaxActiveTime, &cfg.Worker.MaxActiveTime); err != nil {
		return err
	}

	setString(strings.ToLower(fc.Storage.Backend), &cfg.Storage.Backend)
	setString(fc.Storage.LocalDir, &cfg.Storage.LocalDir)
	setString(fc.Storage.Endpoint, &cfg.Storage.Endpoint)
	setString(fc.Storage.Bucket, &cfg.Storage.Bucket)
	if fc.Storage.UseSSL != nil {
		cfg.Storage.UseSSL = *fc.Storage.UseSSL
	}

	setString(fc.Database.DSN, &cfg.Database.DSN)

	setInt(fc.RateLimit.Capacity, &cfg.RateLimit.Capacity)
	if err := setDuration("rate_limit.window", fc.RateLimit.Window, &cfg.RateLimit.Window); err != nil {
		return err
	}

	setString(fc.Tracing.Exporter, &cfg.Tracing.Exporter)
	setString(fc.Tracing.OTLPEndpoint, &cfg.Tracing.OTLPEndpoint)

	setString(fc.Log.Level, &cfg.Log.Level)
	setString(fc.Log.Format, &cfg.Log.Format)

	setString(fc.Presets.File, &cfg.Presets.File)
	if fc.Presets.Watch != nil {
		cfg.Presets.Watch = *fc.Presets.Watch
	}
	return nil
}

func setString(value string, dst *string) {
	if strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

func setInt(value int, dst *int) {
	if value != 0 {
		*dst = value
	}
}

func setDuration(name, value string, dst *time.Duration) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = parsed
	return nil
}
