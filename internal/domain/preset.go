package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	MinColors       = 8
	MaxColors       = 32
	MinScale        = 1.0
	MaxScale        = 4.0
	DefaultPresetID = "color_perfect"
)

var ErrUnknownPreset = errors.New("unknown preset")

type Preset struct {
	ID          string  `json:"id" toml:"id"`
	Name        string  `json:"name" toml:"name"`
	Description string  `json:"description" toml:"description"`
	Colors      int     `json:"colors" toml:"colors"`
	Scale       float64 `json:"scale" toml:"scale"`
	Recommended bool    `json:"recommended" toml:"recommended"`
}

func BuiltinPresets() []Preset {
	return []Preset{
		{
			ID:          "color_perfect",
			Name:        "Color Perfect",
			Description: "Logo-optimized with hole detection",
			Colors:      16,
			Scale:       2.0,
			Recommended: true,
		},
		{
			ID:          "default",
			Name:        "Default",
			Description: "Balanced quality/performance",
			Colors:      16,
			Scale:       1.0,
		},
		{
			ID:          "high_quality",
			Name:        "High Quality",
			Description: "Maximum detail with cubic Bézier curves",
			Colors:      32,
			Scale:       2.0,
		},
		{
			ID:          "fast",
			Name:        "Fast",
			Description: "Quick processing for previews",
			Colors:      8,
			Scale:       1.0,
		},
	}
}

func (p Preset) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("preset id is required")
	}
	if p.Colors < MinColors || p.Colors > MaxColors {
		return fmt.Errorf("preset %s: colors must be between %d and %d", p.ID, MinColors, MaxColors)
	}
	if p.Scale < MinScale || p.Scale > MaxScale {
		return fmt.Errorf("preset %s: scale must be between %.1f and %.1f", p.ID, MinScale, MaxScale)
	}
	return nil
}

// Settings are the parameters a vectorization run is started with.
type Settings struct {
	PresetID string  `json:"preset"`
	Colors   int     `json:"colors"`
	Scale    float64 `json:"scale"`
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.PresetID) == "" {
		return errors.New("preset is required")
	}
	if s.Colors < MinColors || s.Colors > MaxColors {
		return fmt.Errorf("colors must be between %d and %d", MinColors, MaxColors)
	}
	if s.Scale < MinScale || s.Scale > MaxScale {
		return fmt.Errorf("scale must be between %.1f and %.1f", MinScale, MaxScale)
	}
	return nil
}

// SettingsFor starts from the preset's values and applies any non-zero overrides.
func SettingsFor(p Preset, colors int, scale float64) Settings {
	s := Settings{PresetID: p.ID, Colors: p.Colors, Scale: p.Scale}
	if colors != 0 {
		s.Colors = colors
	}
	if scale != 0 {
		s.Scale = RoundScale(scale)
	}
	return s
}

// RoundScale snaps a scale multiplier to the 0.1 slider step.
func RoundScale(scale float64) float64 {
	return math.Round(scale*10) / 10
}
