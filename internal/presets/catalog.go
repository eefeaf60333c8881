package presets

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

// Catalog holds the active preset list. It is safe for concurrent use and can be
// swapped wholesale when the catalog file changes.
type Catalog struct {
	mu      sync.RWMutex
	presets []domain.Preset
}

func NewCatalog(presets []domain.Preset) *Catalog {
	c := &Catalog{}
	c.Replace(presets)
	return c
}

func Builtin() *Catalog {
	return NewCatalog(domain.BuiltinPresets())
}

func (c *Catalog) List() []domain.Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.presets)
}

func (c *Catalog) Get(id string) (domain.Preset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.presets {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Preset{}, false
}

func (c *Catalog) Replace(presets []domain.Preset) {
	c.mu.Lock()
	c.presets = slices.Clone(presets)
	c.mu.Unlock()
}

// Resolve turns a preset id plus optional overrides into validated settings. An empty
// id selects the default preset.
func (c *Catalog) Resolve(id string, colors int, scale float64) (domain.Settings, error) {
	if id == "" {
		id = domain.DefaultPresetID
	}
	p, ok := c.Get(id)
	if !ok {
		return domain.Settings{}, fmt.Errorf("%w: %q", domain.ErrUnknownPreset, id)
	}
	s := domain.SettingsFor(p, colors, scale)
	if err := s.Validate(); err != nil {
		return domain.Settings{}, err
	}
	return s, nil
}

// Merge overlays file presets on base: same id replaces, new ids append in file order.
func Merge(base, overlay []domain.Preset) []domain.Preset {
	out := slices.Clone(base)
	for _, p := range overlay {
		if i := slices.IndexFunc(out, func(b domain.Preset) bool { return b.ID == p.ID }); i >= 0 {
			out[i] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
