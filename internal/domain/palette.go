package domain

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPrimaryColor   = "#f7931e"
	DefaultSecondaryColor = "#000000"
	BlankBrandColor       = "#000000"
)

var (
	ErrInvalidColor      = errors.New("invalid color")
	ErrColorOutOfRange   = errors.New("brand color index out of range")
	ErrUnknownPaletteOp  = errors.New("unknown palette operation")
	ErrColorNotInPalette = errors.New("color is not a detected color")
)

type ColorPalette struct {
	DetectedColors []string `json:"detected_colors"`
	BrandColors    []string `json:"brand_colors"`
	Accuracy       int      `json:"accuracy"`
}

// NewPalette seeds the brand colors with the two most frequent detected colors.
func NewPalette(detected []string) ColorPalette {
	p := ColorPalette{
		DetectedColors: slices.Clone(detected),
		Accuracy:       100,
	}
	if len(detected) == 0 {
		p.DetectedColors = []string{}
		p.BrandColors = []string{DefaultPrimaryColor, DefaultSecondaryColor}
		return p
	}

	p.Accuracy = 99
	n := min(2, len(detected))
	p.BrandColors = slices.Clone(detected[:n])
	return p
}

// FillColors returns the colors a template should paint with, brand colors first.
func (p ColorPalette) FillColors() []string {
	out := make([]string, 0, len(p.BrandColors)+len(p.DetectedColors))
	for _, c := range p.BrandColors {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	for _, c := range p.DetectedColors {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{DefaultPrimaryColor, DefaultSecondaryColor}
	}
	return out
}

// AddBrandColor promotes a detected color. It reports false when the color is
// already a brand color.
func (p *ColorPalette) AddBrandColor(color string) (bool, error) {
	normalized, err := NormalizeHex(color)
	if err != nil {
		return false, err
	}
	if !slices.Contains(p.DetectedColors, normalized) {
		return false, fmt.Errorf("%w: %s", ErrColorNotInPalette, normalized)
	}
	if slices.Contains(p.BrandColors, normalized) {
		return false, nil
	}
	p.BrandColors = append(p.BrandColors, normalized)
	return true, nil
}

func (p *ColorPalette) SetBrandColor(index int, color string) error {
	if index < 0 || index >= len(p.BrandColors) {
		return fmt.Errorf("%w: %d", ErrColorOutOfRange, index)
	}
	normalized, err := NormalizeHex(color)
	if err != nil {
		return err
	}
	p.BrandColors[index] = normalized
	return nil
}

func (p *ColorPalette) AppendBlank() {
	p.BrandColors = append(p.BrandColors, BlankBrandColor)
}

func (p *ColorPalette) RemoveBrandColor(index int) error {
	if index < 0 || index >= len(p.BrandColors) {
		return fmt.Errorf("%w: %d", ErrColorOutOfRange, index)
	}
	p.BrandColors = slices.Delete(p.BrandColors, index, index+1)
	return nil
}

// PaletteEdit is the body accepted by the brand color endpoint.
type PaletteEdit struct {
	Op    string `json:"op"`
	Color string `json:"color,omitempty"`
	Index *int   `json:"index,omitempty"`
}

func (p *ColorPalette) Apply(edit PaletteEdit) error {
	switch strings.ToLower(strings.TrimSpace(edit.Op)) {
	case "add":
		_, err := p.AddBrandColor(edit.Color)
		return err
	case "set":
		if edit.Index == nil {
			return errors.New("index is required for op=set")
		}
		return p.SetBrandColor(*edit.Index, edit.Color)
	case "append":
		p.AppendBlank()
		return nil
	case "remove":
		if edit.Index == nil {
			return errors.New("index is required for op=remove")
		}
		return p.RemoveBrandColor(*edit.Index)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPaletteOp, edit.Op)
	}
}

// NormalizeHex accepts "#rrggbb", "rrggbb" or "#rgb" and returns lowercase "#rrggbb".
func NormalizeHex(s string) (string, error) {
	v := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if len(v) == 3 {
		v = string([]byte{v[0], v[0], v[1], v[1], v[2], v[2]})
	}
	if len(v) != 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	if _, err := strconv.ParseUint(v, 16, 32); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return "#" + v, nil
}
