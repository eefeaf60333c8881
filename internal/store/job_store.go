package store

import (
	"context"
	"errors"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrUploadNotFound = errors.New("upload not found")
)

// Completion is the terminal write for a job.
type Completion struct {
	Status       string
	Progress     domain.ProgressState
	Result       *domain.ProcessingResult
	SVGObjectKey string
}

type JobStore interface {
	Create(ctx context.Context, job domain.Job) error
	Get(ctx context.Context, id string) (domain.Job, bool, error)
	UpdateStatus(ctx context.Context, id, status string) (domain.Job, error)
	// UpdateProgress stores a snapshot and returns the job so the caller can read
	// the current control flag. Finished jobs return domain.ErrJobFinished.
	UpdateProgress(ctx context.Context, id string, progress domain.ProgressState) (domain.Job, error)
	SetControl(ctx context.Context, id, control string) (domain.Job, error)
	Complete(ctx context.Context, id string, c Completion) (domain.Job, error)
}

type UploadStore interface {
	CreateUpload(ctx context.Context, upload domain.Upload) error
	GetUpload(ctx context.Context, id string) (domain.Upload, bool, error)
	UpdatePalette(ctx context.Context, id string, palette domain.ColorPalette) (domain.Upload, error)
}

type UsageStore interface {
	CreateUsageLog(ctx context.Context, usage domain.UsageLog) error
}

// jobStatusFor maps a progress snapshot onto the job lifecycle. Terminal statuses
// are only written by Complete.
func jobStatusFor(progressStatus string) string {
	if progressStatus == domain.ProgressPaused {
		return domain.JobStatusPaused
	}
	return domain.JobStatusProcessing
}
