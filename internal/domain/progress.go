package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	ProgressIdle       = "idle"
	ProgressProcessing = "processing"
	ProgressPaused     = "paused"
	ProgressComplete   = "complete"
	ProgressError      = "error"
	ProgressStopped    = "stopped"

	PhaseCount = 5

	ReadyOperation    = "Ready to process"
	CompleteOperation = "Processing complete with hole detection"
	PausedOperation   = "Paused"
	StoppedOperation  = "Stopped by user"
)

type Phase struct {
	Number    int     `json:"number"`
	Name      string  `json:"name"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Operation string  `json:"operation"`
}

var phases = [PhaseCount]Phase{
	{1, "Image Analysis & Color Detection", 0, 20, "Analyzing image structure and detecting dominant colors..."},
	{2, "LAB Color Space Quantization", 20, 40, "Converting to LAB color space for accurate quantization..."},
	{3, "Hole Detection & Layer Ordering", 40, 70, "Detecting holes in letters (B, A, O) and balancing layer order..."},
	{4, "Cubic Bézier Path Generation", 70, 90, "Generating smooth cubic Bézier curves for professional output..."},
	{5, "SVG Optimization & Export", 90, 100, "Optimizing SVG with compound paths and fill-rule evenodd..."},
}

func Phases() []Phase {
	out := make([]Phase, len(phases))
	copy(out, phases[:])
	return out
}

// PhaseByNumber clamps n into 1..5.
func PhaseByNumber(n int) Phase {
	n = min(max(n, 1), PhaseCount)
	return phases[n-1]
}

type ProgressState struct {
	Phase            int     `json:"phase"`
	PhaseName        string  `json:"phase_name"`
	Percentage       float64 `json:"percentage"`
	ElapsedMS        int64   `json:"elapsed_ms"`
	EstimatedTotalMS int64   `json:"estimated_total_ms"`
	CurrentOperation string  `json:"current_operation"`
	Status           string  `json:"status"`
	ErrorMessage     string  `json:"error_message,omitempty"`
}

func IdleProgress() ProgressState {
	return ProgressState{
		Phase:            1,
		PhaseName:        PhaseByNumber(1).Name,
		CurrentOperation: ReadyOperation,
		Status:           ProgressIdle,
	}
}

func ClampPercentage(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// EstimateProcessingTime mirrors the upload-size heuristic shown beside the
// progress bar: 1s per 100 KiB, capped at 30s, scaled by colors/16.
func EstimateProcessingTime(sizeBytes int64, colors int) time.Duration {
	base := math.Min(float64(sizeBytes)/(100*1024), 30)
	complexity := float64(colors) / 16
	return time.Duration(base * complexity * float64(time.Second))
}

// SettingsEstimateSeconds is the rounder estimate printed with the current settings.
// Without an upload it assumes a 500 KB image.
func SettingsEstimateSeconds(sizeBytes int64, colors int) int {
	if sizeBytes <= 0 {
		sizeBytes = 500000
	}
	return int(math.Ceil(float64(sizeBytes) / 50000 * (float64(colors) / 16)))
}

type Metrics struct {
	ProcessingTimeMS int64 `json:"processing_time_ms"`
	PathCount        int   `json:"path_count"`
	ColorCount       int   `json:"color_count"`
	SizeReduction    int   `json:"size_reduction"`
}

type ProcessingResult struct {
	Success    bool     `json:"success"`
	OutputPath string   `json:"output_path,omitempty"`
	Metrics    *Metrics `json:"metrics,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// FormatDuration renders "42s" or "1m 5s".
func FormatDuration(ms int64) string {
	seconds := ms / 1000
	minutes := seconds / 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}
