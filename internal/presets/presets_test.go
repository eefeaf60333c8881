package presets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dunamismax/vectorstudio/internal/domain"
	"github.com/dunamismax/vectorstudio/internal/logging"
)

const catalogTOML = `
[[preset]]
id = "fast"
name = "Fast"
description = "Even quicker previews"
colors = 10
scale = 1.0

[[preset]]
id = "poster"
name = "Poster"
description = "Large prints"
colors = 24
scale = 3.04
`

func writeCatalog(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "presets.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestResolve(t *testing.T) {
	c := Builtin()

	s, err := c.Resolve("", 0, 0)
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if s.PresetID != "color_perfect" || s.Colors != 16 || s.Scale != 2.0 {
		t.Fatalf("unexpected default settings %+v", s)
	}

	s, err = c.Resolve("fast", 12, 2.26)
	if err != nil {
		t.Fatalf("resolve with overrides: %v", err)
	}
	if s.Colors != 12 || s.Scale != 2.3 {
		t.Fatalf("expected overrides applied, got %+v", s)
	}

	if _, err := c.Resolve("ultra", 0, 0); !errors.Is(err, domain.ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
	if _, err := c.Resolve("fast", 64, 0); err == nil {
		t.Fatal("expected out-of-range colors to fail")
	}
	if _, err := c.Resolve("fast", 0, 4.5); err == nil {
		t.Fatal("expected out-of-range scale to fail")
	}
}

func TestLoadMergesFileOverBuiltins(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), catalogTOML)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	list := c.List()
	if len(list) != 5 {
		t.Fatalf("expected 5 presets, got %d", len(list))
	}
	if list[len(list)-1].ID != "poster" || list[len(list)-1].Scale != 3.0 {
		t.Fatalf("expected poster appended with rounded scale, got %+v", list[len(list)-1])
	}
	fast, ok := c.Get("fast")
	if !ok || fast.Colors != 10 {
		t.Fatalf("expected fast overridden, got %+v", fast)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"range":     "[[preset]]\nid = \"big\"\ncolors = 64\nscale = 1.0\n",
		"duplicate": "[[preset]]\nid = \"a\"\ncolors = 8\nscale = 1.0\n[[preset]]\nid = \"a\"\ncolors = 8\nscale = 1.0\n",
		"syntax":    "[[preset]\n",
		"no id":     "[[preset]]\ncolors = 8\nscale = 1.0\n",
	}
	for name, body := range cases {
		path := writeCatalog(t, dir, body)
		if _, err := LoadFile(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWatcherReloadsCatalog(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, catalogTOML)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	w := NewWatcher(path, c, logging.Discard())
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher a moment to register the directory
	time.Sleep(50 * time.Millisecond)

	// broken file keeps previous catalog
	writeCatalog(t, dir, "[[preset]\n")
	time.Sleep(100 * time.Millisecond)
	if _, ok := c.Get("poster"); !ok {
		t.Fatal("expected previous catalog to survive a bad edit")
	}

	writeCatalog(t, dir, "[[preset]]\nid = \"mono\"\nname = \"Mono\"\ncolors = 8\nscale = 1.5\n")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := c.Get("mono"); ok {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if _, ok := c.Get("mono"); !ok {
		t.Fatal("expected catalog to pick up the new preset")
	}
	if _, ok := c.Get("poster"); ok {
		t.Fatal("expected removed preset to disappear after reload")
	}
	if w.Reloads() == 0 {
		t.Fatal("expected reload counter to move")
	}
}
