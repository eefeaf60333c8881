package domain

import (
	"testing"
	"time"
)

func TestPhasesCoverZeroToHundred(t *testing.T) {
	list := Phases()
	if len(list) != PhaseCount {
		t.Fatalf("expected %d phases, got %d", PhaseCount, len(list))
	}
	if list[0].Start != 0 || list[len(list)-1].End != 100 {
		t.Fatalf("phases do not span 0..100: %+v", list)
	}
	for i := 1; i < len(list); i++ {
		if list[i].Start != list[i-1].End {
			t.Fatalf("gap between phase %d and %d", list[i-1].Number, list[i].Number)
		}
	}
	if PhaseByNumber(0).Number != 1 || PhaseByNumber(9).Number != 5 {
		t.Fatal("expected PhaseByNumber to clamp")
	}
}

func TestEstimateProcessingTime(t *testing.T) {
	if got := EstimateProcessingTime(200*1024, 16); got != 2*time.Second {
		t.Fatalf("expected 2s, got %s", got)
	}
	// base is capped at 30s before the color multiplier
	if got := EstimateProcessingTime(10*1024*1024, 32); got != 60*time.Second {
		t.Fatalf("expected 60s, got %s", got)
	}
	if got := SettingsEstimateSeconds(0, 16); got != 10 {
		t.Fatalf("expected 10s default estimate, got %d", got)
	}
}

func TestClampPercentage(t *testing.T) {
	if ClampPercentage(-3) != 0 || ClampPercentage(101.2) != 100 || ClampPercentage(42.5) != 42.5 {
		t.Fatal("unexpected clamp result")
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(42_000); got != "42s" {
		t.Fatalf("expected 42s, got %s", got)
	}
	if got := FormatDuration(65_500); got != "1m 5s" {
		t.Fatalf("expected 1m 5s, got %s", got)
	}
}

func TestSettingsFor(t *testing.T) {
	p := BuiltinPresets()[0]
	s := SettingsFor(p, 0, 0)
	if s.Colors != 16 || s.Scale != 2.0 || s.PresetID != "color_perfect" {
		t.Fatalf("unexpected settings %+v", s)
	}
	s = SettingsFor(p, 24, 1.26)
	if s.Colors != 24 || s.Scale != 1.3 {
		t.Fatalf("unexpected overridden settings %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("expected valid settings: %v", err)
	}
	for _, preset := range BuiltinPresets() {
		if err := preset.Validate(); err != nil {
			t.Fatalf("builtin preset invalid: %v", err)
		}
	}
}

func TestProcessingLog(t *testing.T) {
	upload := Upload{Name: "logo.png", Size: 51200, Palette: NewPalette([]string{"#f80000", "#0000f8", "#008000"})}
	at := time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)

	lines := ProcessingLog(upload, ProgressState{Status: ProgressProcessing}, at)
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines while processing, got %d", len(lines))
	}
	if lines[0].Message != "rv0: Image loaded: logo.png (50KB)" || lines[0].Time != "14:05:09" {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if lines[1].Message != "rv0: Detected 3 dominant colors" {
		t.Fatalf("unexpected color line %q", lines[1].Message)
	}

	lines = ProcessingLog(upload, ProgressState{Status: ProgressComplete}, at)
	if len(lines) != 7 || lines[6].Message != "rv0: SVG export complete with compound paths" {
		t.Fatalf("expected export line once complete, got %+v", lines)
	}
}
