package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dunamismax/vectorstudio/internal/domain"
	"github.com/dunamismax/vectorstudio/internal/progress"
	"github.com/dunamismax/vectorstudio/internal/queue"
	"github.com/dunamismax/vectorstudio/internal/render"
	"github.com/dunamismax/vectorstudio/internal/storage"
	"github.com/dunamismax/vectorstudio/internal/store"
	"github.com/dunamismax/vectorstudio/internal/webhook"
)

var ErrJobMissing = errors.New("job record missing")

const DefaultMaxActiveTime = 5 * time.Minute

type webhookSender interface {
	Send(ctx context.Context, endpoint, event string, payload any) error
}

type RunnerConfig struct {
	Logger        zerolog.Logger
	Jobs          store.JobStore
	Uploads       store.UploadStore
	Usage         store.UsageStore
	Objects       storage.ObjectStore
	Webhooks      webhookSender
	TickInterval  time.Duration
	MaxActiveJobs int
	// MaxActiveTime bounds the unpaused part of a run. Zero uses DefaultMaxActiveTime.
	MaxActiveTime time.Duration
	// NewRand seeds each run. Nil uses a random PCG source.
	NewRand func() *rand.Rand
}

// Runner executes one simulated vectorization run end to end. The asynq server and
// the inline dispatcher both call Run.
type Runner struct {
	logger    zerolog.Logger
	jobs      store.JobStore
	uploads   store.UploadStore
	usage     store.UsageStore
	objects   storage.ObjectStore
	webhooks  webhookSender
	tick      time.Duration
	maxActive time.Duration
	newRand   func() *rand.Rand
	sem       chan struct{}
	metrics   *metrics
	tracer    trace.Tracer
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Jobs == nil || cfg.Uploads == nil {
		return nil, fmt.Errorf("job and upload stores are required")
	}
	if cfg.Objects == nil {
		return nil, fmt.Errorf("object storage is required")
	}

	usage := cfg.Usage
	if usage == nil {
		if jobAndUsageStore, ok := cfg.Jobs.(store.UsageStore); ok {
			usage = jobAndUsageStore
		}
	}
	newRand := cfg.NewRand
	if newRand == nil {
		newRand = func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}

	maxActive := cfg.MaxActiveTime
	if maxActive <= 0 {
		maxActive = DefaultMaxActiveTime
	}

	return &Runner{
		logger:    cfg.Logger,
		jobs:      cfg.Jobs,
		uploads:   cfg.Uploads,
		usage:     usage,
		objects:   cfg.Objects,
		webhooks:  cfg.Webhooks,
		tick:      cfg.TickInterval,
		maxActive: maxActive,
		newRand:   newRand,
		sem:       make(chan struct{}, max(1, cfg.MaxActiveJobs)),
		metrics:   newMetrics(),
		tracer:    otel.Tracer("vectorstudio/worker"),
	}, nil
}

// Run drives payload.JobID to a terminal state. It returns nil for jobs that were
// already finished so redelivered tasks are harmless.
func (r *Runner) Run(ctx context.Context, payload queue.VectorizePayload) error {
	startedAt := time.Now()
	outcome := domain.JobStatusFailed

	ctx, span := r.tracer.Start(ctx, "worker.simulate_vectorize", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("job.id", payload.JobID),
		attribute.String("job.preset", payload.Settings.PresetID),
		attribute.Int("job.colors", payload.Settings.Colors),
	)
	defer span.End()

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	r.metrics.activeJobs.Inc()
	defer func() {
		<-r.sem
		r.metrics.activeJobs.Dec()
		r.metrics.jobDuration.WithLabelValues(outcome).Observe(time.Since(startedAt).Seconds())
		r.metrics.jobsTotal.WithLabelValues(outcome).Inc()
	}()

	log := r.logger.With().Str("job_id", payload.JobID).Logger()

	job, ok, err := r.jobs.Get(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobMissing, payload.JobID)
	}
	if job.Finished() {
		outcome = job.Status
		log.Info().Str("status", job.Status).Msg("job already finished")
		return nil
	}

	upload, ok, err := r.uploads.GetUpload(ctx, payload.UploadID)
	if err != nil {
		return fmt.Errorf("load upload: %w", err)
	}
	if !ok {
		err := fmt.Errorf("upload %s not found", payload.UploadID)
		r.fail(ctx, log, job, domain.IdleProgress(), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload missing")
		return err
	}

	log.Info().
		Str("upload_id", upload.ID).
		Str("structure", upload.Structure.Kind).
		Int("colors", payload.Settings.Colors).
		Msg("simulation started")
	if _, err := r.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusProcessing); err != nil {
		log.Warn().Err(err).Msg("job status update failed")
	}

	rng := r.newRand()
	sim := progress.New(progress.Config{
		Interval:  r.tick,
		SizeBytes: upload.Size,
		Colors:    payload.Settings.Colors,
		Rand:      rng,
		Control:   job.Control,
		MaxActive: r.maxActive,
	})
	result, err := sim.Run(ctx, progress.ObserverFunc(func(ctx context.Context, state domain.ProgressState) (string, error) {
		return r.observe(ctx, job.ID, state)
	}))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// shutdown: hand the job back to the queue instead of failing it
			if _, serr := r.jobs.UpdateStatus(context.WithoutCancel(ctx), job.ID, domain.JobStatusQueued); serr != nil {
				log.Warn().Err(serr).Msg("requeue status update failed")
			}
			outcome = domain.JobStatusQueued
			return err
		}
		// a task deadline or the active time limit ends the job; ctx may already be done
		r.fail(context.WithoutCancel(ctx), log, job, result.State, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "simulation failed")
		return fmt.Errorf("run simulation: %w", err)
	}

	if result.Stopped {
		outcome = domain.JobStatusStopped
		r.stop(ctx, log, job, result.State)
		span.SetStatus(codes.Ok, "stopped")
		return nil
	}

	svgKey, err := r.storeSVG(ctx, job, upload, rng)
	if err != nil {
		r.fail(ctx, log, job, result.State, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "svg export failed")
		return err
	}

	processing := &domain.ProcessingResult{
		Success:    true,
		OutputPath: domain.OutputPath(upload.Name),
		Metrics:    result.Metrics,
	}
	if _, err := r.jobs.Complete(ctx, job.ID, store.Completion{
		Status:       domain.JobStatusSucceeded,
		Progress:     result.State,
		Result:       processing,
		SVGObjectKey: svgKey,
	}); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	outcome = domain.JobStatusSucceeded
	log.Info().
		Int("paths", result.Metrics.PathCount).
		Int("size_reduction", result.Metrics.SizeReduction).
		Str("svg", svgKey).
		Msg("simulation complete")

	r.recordUsage(ctx, log, job, upload, *result.Metrics)

	if err := r.dispatchWebhook(ctx, log, job, webhook.EventJobCompleted, map[string]any{
		"job_id":       job.ID,
		"upload_id":    upload.ID,
		"status":       domain.JobStatusSucceeded,
		"settings":     job.Settings,
		"output_path":  processing.OutputPath,
		"metrics":      processing.Metrics,
		"requested_at": payload.RequestedAt,
		"completed_at": time.Now().UTC(),
	}); err != nil {
		span.RecordError(err)
	}

	span.SetStatus(codes.Ok, "processed")
	return nil
}

// Abandon records payload.JobID as failed once the queue has given up on it. Jobs
// that already reached a terminal status are left alone.
func (r *Runner) Abandon(ctx context.Context, payload queue.VectorizePayload, cause error) {
	log := r.logger.With().Str("job_id", payload.JobID).Logger()
	job, ok, err := r.jobs.Get(ctx, payload.JobID)
	if err != nil || !ok {
		job = domain.Job{ID: payload.JobID, UploadID: payload.UploadID, WebhookURL: payload.WebhookURL, Progress: domain.IdleProgress()}
	}
	if job.Finished() {
		return
	}
	r.fail(ctx, log, job, job.Progress, fmt.Errorf("retries exhausted: %w", cause))
}

// observe persists a snapshot and returns the control flag the API last set.
func (r *Runner) observe(ctx context.Context, jobID string, state domain.ProgressState) (string, error) {
	job, err := r.jobs.UpdateProgress(ctx, jobID, state)
	if errors.Is(err, domain.ErrJobFinished) {
		return domain.ControlStop, nil
	}
	if err != nil {
		return "", fmt.Errorf("persist progress: %w", err)
	}
	r.metrics.progressUpdates.Inc()
	return job.Control, nil
}

func (r *Runner) storeSVG(ctx context.Context, job domain.Job, upload domain.Upload, rng *rand.Rand) (string, error) {
	svg, err := render.SVG(render.Options{
		Kind:    upload.Structure.Kind,
		Colors:  upload.Palette.FillColors(),
		Payload: domain.OutputPath(upload.Name),
		Rand:    rng,
	})
	if err != nil {
		return "", fmt.Errorf("render svg: %w", err)
	}

	key := SVGObjectKey(job.ID, upload.Name)
	if err := r.objects.WriteObject(ctx, key, []byte(svg), "image/svg+xml"); err != nil {
		return "", fmt.Errorf("store svg: %w", err)
	}
	r.metrics.svgBytes.Add(float64(len(svg)))
	return key, nil
}

// SVGObjectKey namespaces the reported output path by job.
func SVGObjectKey(jobID, uploadName string) string {
	return "vectorized/" + jobID + "/" + domain.SVGName(uploadName)
}

func (r *Runner) fail(ctx context.Context, log zerolog.Logger, job domain.Job, state domain.ProgressState, cause error) {
	log.Error().Err(cause).Msg("simulation failed")

	state.Status = domain.ProgressError
	state.ErrorMessage = cause.Error()
	if _, err := r.jobs.Complete(ctx, job.ID, store.Completion{
		Status:   domain.JobStatusFailed,
		Progress: state,
		Result:   &domain.ProcessingResult{Success: false, Error: cause.Error()},
	}); err != nil {
		if errors.Is(err, domain.ErrJobFinished) {
			return
		}
		log.Warn().Err(err).Msg("record failure failed")
	}

	_ = r.dispatchWebhook(ctx, log, job, webhook.EventJobFailed, map[string]any{
		"job_id":    job.ID,
		"upload_id": job.UploadID,
		"status":    domain.JobStatusFailed,
		"failed_at": time.Now().UTC(),
		"error":     cause.Error(),
	})
}

func (r *Runner) stop(ctx context.Context, log zerolog.Logger, job domain.Job, state domain.ProgressState) {
	log.Info().Float64("percentage", state.Percentage).Msg("simulation stopped")

	if _, err := r.jobs.Complete(ctx, job.ID, store.Completion{
		Status:   domain.JobStatusStopped,
		Progress: state,
	}); err != nil && !errors.Is(err, domain.ErrJobFinished) {
		log.Warn().Err(err).Msg("record stop failed")
	}

	_ = r.dispatchWebhook(ctx, log, job, webhook.EventJobStopped, map[string]any{
		"job_id":     job.ID,
		"upload_id":  job.UploadID,
		"status":     domain.JobStatusStopped,
		"percentage": state.Percentage,
		"phase":      state.Phase,
		"stopped_at": time.Now().UTC(),
	})
}

func (r *Runner) dispatchWebhook(ctx context.Context, log zerolog.Logger, job domain.Job, event string, body map[string]any) error {
	if job.WebhookURL == "" || r.webhooks == nil {
		return nil
	}

	if err := r.webhooks.Send(ctx, job.WebhookURL, event, body); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("webhook delivery failed")
		r.metrics.webhookFailures.WithLabelValues(event).Inc()
		return fmt.Errorf("dispatch webhook: %w", err)
	}
	return nil
}

func (r *Runner) recordUsage(ctx context.Context, log zerolog.Logger, job domain.Job, upload domain.Upload, m domain.Metrics) {
	if r.usage == nil {
		return
	}

	userID := "anonymous"
	if strings.TrimSpace(job.UserID) != "" {
		userID = job.UserID
	}

	usage := domain.UsageLog{
		UserID:        userID,
		JobID:         job.ID,
		UploadID:      upload.ID,
		SourceBytes:   upload.Size,
		PathCount:     m.PathCount,
		SizeReduction: m.SizeReduction,
		ComputeTimeMS: max(m.ProcessingTimeMS, 1),
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.usage.CreateUsageLog(ctx, usage); err != nil {
		log.Warn().Err(err).Msg("usage log write failed")
		return
	}

	r.metrics.pathsTotal.Add(float64(usage.PathCount))
	r.metrics.sourceBytesTotal.Add(float64(usage.SourceBytes))
	r.metrics.computeTimeMSTotal.Add(float64(usage.ComputeTimeMS))
}

func (r *Runner) MetricsHandler() http.Handler {
	return r.metrics.Handler()
}
