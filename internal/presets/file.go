package presets

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

type catalogFile struct {
	Presets []domain.Preset `toml:"preset"`
}

// LoadFile reads a catalog of [[preset]] tables and validates every entry.
func LoadFile(path string) ([]domain.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset catalog: %w", err)
	}

	var f catalogFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse preset catalog %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Presets))
	for i := range f.Presets {
		p := &f.Presets[i]
		p.Scale = domain.RoundScale(p.Scale)
		if p.Name == "" {
			p.Name = p.ID
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("preset catalog %s: %w", path, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("preset catalog %s: duplicate preset %q", path, p.ID)
		}
		seen[p.ID] = true
	}
	return f.Presets, nil
}

// Load builds a catalog from the built-in presets plus the optional file.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Builtin(), nil
	}
	overlay, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(Merge(domain.BuiltinPresets(), overlay)), nil
}
