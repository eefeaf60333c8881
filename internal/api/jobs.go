package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/vectorstudio/internal/command"
	"github.com/dunamismax/vectorstudio/internal/domain"
	"github.com/dunamismax/vectorstudio/internal/id"
	"github.com/dunamismax/vectorstudio/internal/queue"
	"github.com/dunamismax/vectorstudio/internal/render"
	"github.com/dunamismax/vectorstudio/internal/storage"
	"github.com/dunamismax/vectorstudio/internal/store"
)

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	upload, ok, err := s.uploads.GetUpload(ctx, req.UploadID)
	if err != nil {
		s.logger.Error().Err(err).Str("upload_id", req.UploadID).Msg("fetch upload failed")
		writeError(w, http.StatusInternalServerError, "failed to load upload")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "upload not found")
		return
	}

	settings, err := s.presets.Resolve(req.Preset, req.Colors, req.Scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	job := domain.Job{
		ID:         id.New(id.PrefixJob),
		UploadID:   upload.ID,
		UserID:     s.userID(r),
		Status:     domain.JobStatusCreated,
		Settings:   settings,
		WebhookURL: strings.TrimSpace(req.WebhookURL),
		Progress:   domain.IdleProgress(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("create job failed")
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	// queued goes in before dispatch so an inline runner never sees it overwritten
	if _, err := s.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusQueued); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("update status failed")
	}

	info, err := s.dispatcher.Dispatch(ctx, queue.VectorizePayload{
		JobID:       job.ID,
		UploadID:    upload.ID,
		Settings:    settings,
		WebhookURL:  job.WebhookURL,
		RequestedAt: now,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("enqueue failed")
		if _, cerr := s.jobs.Complete(ctx, job.ID, store.Completion{
			Status:   domain.JobStatusFailed,
			Progress: job.Progress,
			Result:   &domain.ProcessingResult{Success: false, Error: "failed to enqueue job"},
		}); cerr != nil {
			s.logger.Warn().Err(cerr).Str("job_id", job.ID).Msg("record enqueue failure failed")
		}
		writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}
	s.metrics.queueEnqueued.WithLabelValues(info.Queue).Inc()
	s.logger.Info().
		Str("job_id", job.ID).
		Str("upload_id", upload.ID).
		Str("preset", settings.PresetID).
		Int("colors", settings.Colors).
		Str("queue", info.Queue).
		Msg("job queued")

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     job.ID,
		"status":     domain.JobStatusQueued,
		"settings":   settings,
		"queue":      info.Queue,
		"task_id":    info.TaskID,
		"state":      info.State,
		"status_url": fmt.Sprintf("/v1/jobs/%s", job.ID),
	})
}

type jobView struct {
	domain.Job
	Elapsed   string           `json:"elapsed"`
	Estimated string           `json:"estimated"`
	Command   string           `json:"command"`
	Log       []domain.LogLine `json:"log"`
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}

	view := jobView{
		Job:       job,
		Elapsed:   domain.FormatDuration(job.Progress.ElapsedMS),
		Estimated: domain.FormatDuration(job.Progress.EstimatedTotalMS),
		Log:       []domain.LogLine{},
	}
	upload, found, err := s.uploads.GetUpload(r.Context(), job.UploadID)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("fetch upload for job view failed")
	}
	if found {
		view.Log = domain.ProcessingLog(upload, job.Progress, time.Now())
		view.Command = command.Build(command.Settings{
			Input:  upload.Name,
			Preset: job.Settings.PresetID,
			Colors: job.Settings.Colors,
			Scale:  job.Settings.Scale,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleJobAction(w http.ResponseWriter, r *http.Request) {
	control, err := domain.ControlFor(r.PathValue("action"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	jobID := r.PathValue("id")
	job, err := s.jobs.SetControl(r.Context(), jobID, control)
	switch {
	case errors.Is(err, store.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
		return
	case errors.Is(err, domain.ErrJobFinished):
		writeError(w, http.StatusConflict, "job already finished")
		return
	case err != nil:
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("set control failed")
		writeError(w, http.StatusInternalServerError, "failed to update job")
		return
	}

	s.logger.Info().Str("job_id", job.ID).Str("action", r.PathValue("action")).Msg("job control set")
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":  job.ID,
		"status":  job.Status,
		"control": job.Control,
	})
}

func (s *Server) handleDownloadSVG(w http.ResponseWriter, r *http.Request) {
	job, svg, ok := s.loadSVG(w, r)
	if !ok {
		return
	}
	filename := "output.svg"
	if job.Result != nil && job.Result.OutputPath != "" {
		filename = job.Result.OutputPath[strings.LastIndex(job.Result.OutputPath, "/")+1:]
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}

// handleSVGURL hands out a presigned link when the object store can sign one and
// falls back to the API download route otherwise.
func (s *Server) handleSVGURL(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	if job.Status != domain.JobStatusSucceeded || job.SVGObjectKey == "" {
		writeError(w, http.StatusConflict, "svg is not ready")
		return
	}

	signer, ok := s.objects.(presigner)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"url": fmt.Sprintf("/v1/jobs/%s/svg", job.ID)})
		return
	}
	url, err := signer.PresignedGetURL(r.Context(), job.SVGObjectKey, domain.SVGName(job.SVGObjectKey), s.presignTTL)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("presign svg failed")
		writeError(w, http.StatusInternalServerError, "failed to generate download URL")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"expires_in": int(s.presignTTL.Seconds()),
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	size := render.DefaultPreviewSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "size must be an integer")
			return
		}
		size = n
	}

	job, svg, ok := s.loadSVG(w, r)
	if !ok {
		return
	}
	caption := ""
	if job.Result != nil {
		caption = job.Result.OutputPath
	}
	png, err := render.RasterizePNG(string(svg), size, caption)
	if errors.Is(err, render.ErrInvalidSize) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("rasterize preview failed")
		writeError(w, http.StatusInternalServerError, "failed to render preview")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (domain.Job, bool) {
	jobID := r.PathValue("id")
	job, ok, err := s.jobs.Get(r.Context(), jobID)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("fetch job failed")
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return domain.Job{}, false
	}
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return domain.Job{}, false
	}
	return job, true
}

func (s *Server) loadSVG(w http.ResponseWriter, r *http.Request) (domain.Job, []byte, bool) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return domain.Job{}, nil, false
	}
	if job.Status != domain.JobStatusSucceeded || job.SVGObjectKey == "" {
		writeError(w, http.StatusConflict, "svg is not ready")
		return domain.Job{}, nil, false
	}

	svg, err := s.objects.ReadObject(r.Context(), job.SVGObjectKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		writeError(w, http.StatusNotFound, "svg object is missing")
		return domain.Job{}, nil, false
	}
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("read svg failed")
		writeError(w, http.StatusInternalServerError, "failed to read svg")
		return domain.Job{}, nil, false
	}
	return job, svg, true
}
