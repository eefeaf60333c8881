package domain

import (
	"errors"
	"slices"
	"testing"
)

func TestNewPalette(t *testing.T) {
	p := NewPalette([]string{"#f89018", "#3060a8", "#c8c8c8"})
	if !slices.Equal(p.BrandColors, []string{"#f89018", "#3060a8"}) {
		t.Fatalf("unexpected brand colors %v", p.BrandColors)
	}
	if p.Accuracy != 99 {
		t.Fatalf("expected accuracy 99, got %d", p.Accuracy)
	}

	empty := NewPalette(nil)
	if !slices.Equal(empty.BrandColors, []string{DefaultPrimaryColor, DefaultSecondaryColor}) {
		t.Fatalf("unexpected fallback brand colors %v", empty.BrandColors)
	}
	if empty.Accuracy != 100 {
		t.Fatalf("expected accuracy 100, got %d", empty.Accuracy)
	}
}

func TestPaletteEdits(t *testing.T) {
	p := NewPalette([]string{"#f89018", "#3060a8", "#c8c8c8"})

	added, err := p.AddBrandColor("#C8C8C8")
	if err != nil || !added {
		t.Fatalf("expected color to be added, added=%v err=%v", added, err)
	}
	added, err = p.AddBrandColor("#c8c8c8")
	if err != nil || added {
		t.Fatalf("expected duplicate to be ignored, added=%v err=%v", added, err)
	}
	if _, err := p.AddBrandColor("#123456"); !errors.Is(err, ErrColorNotInPalette) {
		t.Fatalf("expected ErrColorNotInPalette, got %v", err)
	}

	if err := p.SetBrandColor(0, "abc"); err != nil {
		t.Fatalf("set brand color: %v", err)
	}
	if p.BrandColors[0] != "#aabbcc" {
		t.Fatalf("expected shorthand to expand, got %s", p.BrandColors[0])
	}
	if err := p.SetBrandColor(9, "#000000"); !errors.Is(err, ErrColorOutOfRange) {
		t.Fatalf("expected ErrColorOutOfRange, got %v", err)
	}
	if err := p.SetBrandColor(0, "orange"); !errors.Is(err, ErrInvalidColor) {
		t.Fatalf("expected ErrInvalidColor, got %v", err)
	}

	if err := p.Apply(PaletteEdit{Op: "append"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if last := p.BrandColors[len(p.BrandColors)-1]; last != BlankBrandColor {
		t.Fatalf("expected appended #000000, got %s", last)
	}

	idx := 1
	if err := p.Apply(PaletteEdit{Op: "remove", Index: &idx}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !slices.Equal(p.BrandColors, []string{"#aabbcc", "#c8c8c8", BlankBrandColor}) {
		t.Fatalf("unexpected brand colors after edits %v", p.BrandColors)
	}

	if err := p.Apply(PaletteEdit{Op: "shuffle"}); !errors.Is(err, ErrUnknownPaletteOp) {
		t.Fatalf("expected ErrUnknownPaletteOp, got %v", err)
	}
}

func TestFillColorsDeduplicates(t *testing.T) {
	p := ColorPalette{
		DetectedColors: []string{"#111111", "#222222"},
		BrandColors:    []string{"#222222", "#333333"},
	}
	if got := p.FillColors(); !slices.Equal(got, []string{"#222222", "#333333", "#111111"}) {
		t.Fatalf("unexpected fill colors %v", got)
	}
}
