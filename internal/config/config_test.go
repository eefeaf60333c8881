package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RV0_CONFIG_FILE", "")
	t.Setenv("RV0_DISPATCH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Dispatch != DispatchInline {
		t.Fatalf("expected inline dispatch, got %s", cfg.API.Dispatch)
	}
	if cfg.Worker.TickInterval != 150*time.Millisecond {
		t.Fatalf("expected 150ms tick, got %s", cfg.Worker.TickInterval)
	}
	if cfg.Storage.Backend != StorageLocal {
		t.Fatalf("expected local storage, got %s", cfg.Storage.Backend)
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rv0.toml")
	content := `
[api]
addr = ":9000"

[worker]
tick_interval = "50ms"
max_active_time = "90s"

[storage]
backend = "minio"
bucket = "from-file"

[presets]
file = "/etc/rv0/presets.toml"
watch = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("RV0_CONFIG_FILE", path)
	t.Setenv("MINIO_BUCKET", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Addr != ":9000" {
		t.Fatalf("expected addr from file, got %s", cfg.API.Addr)
	}
	if cfg.Worker.TickInterval != 50*time.Millisecond {
		t.Fatalf("expected tick from file, got %s", cfg.Worker.TickInterval)
	}
	if cfg.Worker.MaxActiveTime != 90*time.Second {
		t.Fatalf("expected active time limit from file, got %s", cfg.Worker.MaxActiveTime)
	}
	if cfg.Storage.Bucket != "from-env" {
		t.Fatalf("expected env to win for bucket, got %s", cfg.Storage.Bucket)
	}
	if !cfg.Presets.Watch || cfg.Presets.File != "/etc/rv0/presets.toml" {
		t.Fatalf("unexpected presets config: %+v", cfg.Presets)
	}
}

func TestApplyFileRejectsBadDuration(t *testing.T) {
	cfg := Default()
	var fc FileConfig
	fc.Worker.TickInterval = "soon"
	if err := ApplyFile(&cfg, fc); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestValidateAsynqRequiresDatabase(t *testing.T) {
	cfg := Default()
	cfg.API.Dispatch = DispatchAsynq
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error without dsn")
	}

	cfg.Database.DSN = "postgres://localhost/rv0"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
