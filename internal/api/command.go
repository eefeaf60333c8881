package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dunamismax/vectorstudio/internal/command"
	"github.com/dunamismax/vectorstudio/internal/domain"
)

func (s *Server) handleListPresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default": domain.DefaultPresetID,
		"presets": s.presets.List(),
	})
}

// handleBuildCommand renders the tracer command for an upload, or the placeholder
// command when no upload_id is given.
func (s *Server) handleBuildCommand(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uploadID := q.Get("upload_id")
	if uploadID == "" {
		settings, _ := s.presets.Resolve("", 0, 0)
		writeJSON(w, http.StatusOK, map[string]any{
			"command":           command.Default(),
			"estimated_seconds": domain.SettingsEstimateSeconds(0, settings.Colors),
		})
		return
	}

	colors, err := optionalInt(q.Get("colors"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "colors must be an integer")
		return
	}
	scale, err := optionalFloat(q.Get("scale"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "scale must be a number")
		return
	}
	settings, err := s.presets.Resolve(q.Get("preset"), colors, scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upload, ok, err := s.uploads.GetUpload(r.Context(), uploadID)
	if err != nil {
		s.logger.Error().Err(err).Str("upload_id", uploadID).Msg("fetch upload failed")
		writeError(w, http.StatusInternalServerError, "failed to load upload")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "upload not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"command": command.Build(command.Settings{
			Input:  upload.Name,
			Preset: settings.PresetID,
			Colors: settings.Colors,
			Scale:  settings.Scale,
		}),
		"settings":          settings,
		"estimated_seconds": domain.SettingsEstimateSeconds(upload.Size, settings.Colors),
	})
}

type parseCommandRequest struct {
	Command string `json:"command"`
}

func (s *Server) handleParseCommand(w http.ResponseWriter, r *http.Request) {
	var req parseCommandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	parsed, err := command.Parse(req.Command)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	settings, err := s.presets.Resolve(parsed.Preset, parsed.Colors, parsed.Scale)
	if errors.Is(err, domain.ErrUnknownPreset) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"input":    parsed.Input,
		"output":   parsed.Output,
		"settings": settings,
	})
}

func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func optionalFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}
