package domain

import (
	"fmt"
	"time"
)

const logPrefix = "rv0: "

type LogLine struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ProcessingLog renders the log panel shown next to a running job. Every line is
// stamped with at; the export line only appears once the run is complete.
func ProcessingLog(upload Upload, progress ProgressState, at time.Time) []LogLine {
	stamp := at.Format("15:04:05")
	line := func(level, msg string) LogLine {
		return LogLine{Time: stamp, Level: level, Message: logPrefix + msg}
	}

	lines := []LogLine{
		line("info", fmt.Sprintf("Image loaded: %s (%dKB)", upload.Name, upload.SizeKB())),
		line("info", fmt.Sprintf("Detected %d dominant colors", len(upload.Palette.DetectedColors))),
		line("success", "LAB color space conversion complete"),
		line("info", "Advanced hole detection initialized"),
		line("info", "Balanced layer ordering applied"),
		line("info", "Generating cubic Bézier curves..."),
	}
	if progress.Status == ProgressComplete {
		lines = append(lines, line("success", "SVG export complete with compound paths"))
	}
	return lines
}
