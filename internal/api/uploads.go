package api

import (
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/crypto/blake2b"

	"github.com/dunamismax/vectorstudio/internal/command"
	"github.com/dunamismax/vectorstudio/internal/domain"
	"github.com/dunamismax/vectorstudio/internal/id"
	"github.com/dunamismax/vectorstudio/internal/store"
)

// uploadBodyLimit bounds the whole multipart body. The file part itself is
// checked against domain.MaxUploadBytes while it streams.
const uploadBodyLimit = 4 * domain.MaxUploadBytes

type uploadView struct {
	domain.Upload
	SizeKB           int    `json:"size_kb"`
	EstimatedSeconds int    `json:"estimated_seconds"`
	Command          string `json:"command"`
}

func (s *Server) viewUpload(u domain.Upload) uploadView {
	settings, err := s.presets.Resolve("", 0, 0)
	if err != nil {
		settings = domain.SettingsFor(domain.BuiltinPresets()[0], 0, 0)
	}
	return uploadView{
		Upload:           u,
		SizeKB:           u.SizeKB(),
		EstimatedSeconds: domain.SettingsEstimateSeconds(u.Size, settings.Colors),
		Command: command.Build(command.Settings{
			Input:  u.Name,
			Preset: settings.PresetID,
			Colors: settings.Colors,
			Scale:  settings.Scale,
		}),
	}
}

func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, uploadBodyLimit)
	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart/form-data body")
		return
	}

	var (
		name     string
		declared string
		data     []byte
		found    bool
	)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		if part.FormName() != "file" {
			continue
		}

		name = uploadName(part.FileName())
		declared = part.Header.Get("Content-Type")
		if err := domain.ValidateUpload(declared, 0); err != nil {
			s.rejectUpload(w, http.StatusUnsupportedMediaType, err)
			return
		}
		data, err = io.ReadAll(io.LimitReader(part, domain.MaxUploadBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read file")
			return
		}
		found = true
		break
	}
	if !found {
		writeError(w, http.StatusBadRequest, `multipart field "file" is required`)
		return
	}

	if err := domain.ValidateUpload(declared, int64(len(data))); err != nil {
		s.rejectUpload(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	sniffed := mimetype.Detect(data).String()
	if !domain.SniffMatches(declared, sniffed) {
		s.logger.Info().Str("declared", declared).Str("sniffed", sniffed).Msg("upload content type mismatch")
		s.rejectUpload(w, http.StatusUnsupportedMediaType, domain.ErrUnsupportedFormat)
		return
	}

	ctx := r.Context()
	report, err := s.analyzer.Analyze(ctx, data)
	if err != nil {
		s.logger.Warn().Err(err).Str("name", name).Msg("upload analysis failed")
		writeError(w, http.StatusUnprocessableEntity, "could not decode image")
		return
	}

	digest := blake2b.Sum256(data)
	now := time.Now().UTC()
	upload := domain.Upload{
		ID:          id.New(id.PrefixUpload),
		Name:        name,
		ContentType: domain.NormalizeContentType(declared),
		Size:        int64(len(data)),
		Digest:      hex.EncodeToString(digest[:]),
		Width:       report.Width,
		Height:      report.Height,
		Palette:     domain.NewPalette(report.Colors),
		Structure:   report.Structure,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	upload.ObjectKey = "uploads/" + upload.ID + "/" + upload.Name

	if err := s.objects.WriteObject(ctx, upload.ObjectKey, data, upload.ContentType); err != nil {
		s.logger.Error().Err(err).Str("upload_id", upload.ID).Msg("store upload failed")
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if err := s.uploads.CreateUpload(ctx, upload); err != nil {
		s.logger.Error().Err(err).Str("upload_id", upload.ID).Msg("record upload failed")
		writeError(w, http.StatusInternalServerError, "failed to record upload")
		return
	}

	s.metrics.uploadsTotal.WithLabelValues(upload.Structure.Kind).Inc()
	s.logger.Info().
		Str("upload_id", upload.ID).
		Int64("size", upload.Size).
		Str("structure", upload.Structure.Kind).
		Strs("colors", upload.Palette.DetectedColors).
		Msg("upload accepted")

	writeJSON(w, http.StatusCreated, s.viewUpload(upload))
}

func (s *Server) rejectUpload(w http.ResponseWriter, status int, err error) {
	reason := "format"
	if errors.Is(err, domain.ErrFileTooLarge) {
		reason = "size"
	}
	s.metrics.uploadsRejected.WithLabelValues(reason).Inc()
	writeError(w, status, domain.UserMessage(err))
}

// uploadName keeps only the base name a browser sent, whatever separator it used.
func uploadName(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	upload, ok, err := s.uploads.GetUpload(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error().Err(err).Msg("fetch upload failed")
		writeError(w, http.StatusInternalServerError, "failed to load upload")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "upload not found")
		return
	}
	writeJSON(w, http.StatusOK, s.viewUpload(upload))
}

func (s *Server) handleEditBrandColors(w http.ResponseWriter, r *http.Request) {
	var edit domain.PaletteEdit
	if err := decodeJSON(r, &edit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	uploadID := r.PathValue("id")
	upload, ok, err := s.uploads.GetUpload(ctx, uploadID)
	if err != nil {
		s.logger.Error().Err(err).Str("upload_id", uploadID).Msg("fetch upload failed")
		writeError(w, http.StatusInternalServerError, "failed to load upload")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "upload not found")
		return
	}

	palette := upload.Palette
	if err := palette.Apply(edit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	upload, err = s.uploads.UpdatePalette(ctx, uploadID, palette)
	if errors.Is(err, store.ErrUploadNotFound) {
		writeError(w, http.StatusNotFound, "upload not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("upload_id", uploadID).Msg("update palette failed")
		writeError(w, http.StatusInternalServerError, "failed to update palette")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"upload_id": upload.ID,
		"palette":   upload.Palette,
	})
}
