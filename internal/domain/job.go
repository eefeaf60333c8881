package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	JobStatusCreated    = "created"
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusPaused     = "paused"
	JobStatusSucceeded  = "succeeded"
	JobStatusFailed     = "failed"
	JobStatusStopped    = "stopped"

	ControlNone  = ""
	ControlPause = "pause"
	ControlStop  = "stop"
)

var ErrJobFinished = errors.New("job already finished")

type CreateJobRequest struct {
	UploadID   string  `json:"upload_id"`
	Preset     string  `json:"preset,omitempty"`
	Colors     int     `json:"colors,omitempty"`
	Scale      float64 `json:"scale,omitempty"`
	WebhookURL string  `json:"webhook_url,omitempty"`
}

func (r CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.UploadID) == "" {
		return errors.New("upload_id is required")
	}
	if r.Colors != 0 && (r.Colors < MinColors || r.Colors > MaxColors) {
		return fmt.Errorf("colors must be between %d and %d", MinColors, MaxColors)
	}
	if r.Scale != 0 && (r.Scale < MinScale || r.Scale > MaxScale) {
		return fmt.Errorf("scale must be between %.1f and %.1f", MinScale, MaxScale)
	}
	if hook := strings.TrimSpace(r.WebhookURL); hook != "" {
		u, err := url.ParseRequestURI(hook)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid webhook_url: %s", r.WebhookURL)
		}
	}
	return nil
}

type Job struct {
	ID           string            `json:"id"`
	UploadID     string            `json:"upload_id"`
	UserID       string            `json:"user_id,omitempty"`
	Status       string            `json:"status"`
	Control      string            `json:"control,omitempty"`
	Settings     Settings          `json:"settings"`
	WebhookURL   string            `json:"webhook_url,omitempty"`
	Progress     ProgressState     `json:"progress"`
	Result       *ProcessingResult `json:"result,omitempty"`
	SVGObjectKey string            `json:"svg_object_key,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (j Job) Finished() bool {
	switch j.Status {
	case JobStatusSucceeded, JobStatusFailed, JobStatusStopped:
		return true
	default:
		return false
	}
}

// ControlFor maps a pause/resume/stop action onto the control flag the worker polls.
func ControlFor(action string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "pause":
		return ControlPause, nil
	case "resume":
		return ControlNone, nil
	case "stop":
		return ControlStop, nil
	default:
		return "", fmt.Errorf("unsupported job action: %s", action)
	}
}
