package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dunamismax/vectorstudio/internal/analysis"
	"github.com/dunamismax/vectorstudio/internal/presets"
	"github.com/dunamismax/vectorstudio/internal/queue"
	"github.com/dunamismax/vectorstudio/internal/ratelimit"
	"github.com/dunamismax/vectorstudio/internal/storage"
	"github.com/dunamismax/vectorstudio/internal/store"
)

// Dispatcher hands a queued job to whatever runs it: asynq in production, an
// in-process runner when the API runs alone.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload queue.VectorizePayload) (queue.DispatchInfo, error)
}

type imageAnalyzer interface {
	Analyze(ctx context.Context, data []byte) (analysis.Report, error)
}

type presigner interface {
	PresignedGetURL(ctx context.Context, objectKey, filename string, expiry time.Duration) (string, error)
}

type Config struct {
	Logger       zerolog.Logger
	Uploads      store.UploadStore
	Jobs         store.JobStore
	Objects      storage.ObjectStore
	Dispatcher   Dispatcher
	Analyzer     imageAnalyzer
	Presets      *presets.Catalog
	RateLimiter  ratelimit.Limiter
	UserIDHeader string
	PresignTTL   time.Duration
}

type Server struct {
	logger       zerolog.Logger
	uploads      store.UploadStore
	jobs         store.JobStore
	objects      storage.ObjectStore
	dispatcher   Dispatcher
	analyzer     imageAnalyzer
	presets      *presets.Catalog
	rateLimiter  ratelimit.Limiter
	userIDHeader string
	presignTTL   time.Duration
	metrics      *metrics
	tracer       trace.Tracer
	mux          *http.ServeMux
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Uploads == nil || cfg.Jobs == nil {
		return nil, errors.New("upload and job stores are required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg.Analyzer == nil {
		return nil, errors.New("analyzer is required")
	}

	objects := cfg.Objects
	if objects == nil {
		objects = unavailableObjectStore{}
	}
	catalog := cfg.Presets
	if catalog == nil {
		catalog = presets.Builtin()
	}
	presignTTL := cfg.PresignTTL
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	userIDHeader := cfg.UserIDHeader
	if strings.TrimSpace(userIDHeader) == "" {
		userIDHeader = "X-User-ID"
	}

	s := &Server{
		logger:       cfg.Logger,
		uploads:      cfg.Uploads,
		jobs:         cfg.Jobs,
		objects:      objects,
		dispatcher:   cfg.Dispatcher,
		analyzer:     cfg.Analyzer,
		presets:      catalog,
		rateLimiter:  cfg.RateLimiter,
		userIDHeader: userIDHeader,
		presignTTL:   presignTTL,
		metrics:      newMetrics(),
		tracer:       otel.Tracer("vectorstudio/api"),
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

type unavailableObjectStore struct{}

func (unavailableObjectStore) WriteObject(context.Context, string, []byte, string) error {
	return errors.New("object storage is unavailable")
}

func (unavailableObjectStore) ReadObject(context.Context, string) ([]byte, error) {
	return nil, errors.New("object storage is unavailable")
}

func (unavailableObjectStore) ObjectExists(context.Context, string) (bool, error) {
	return false, errors.New("object storage is unavailable")
}

func (s *Server) Handler() http.Handler {
	return s.withTracing(s.metrics.withHTTPMetrics(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("GET /v1/presets", s.handleListPresets)

	s.mux.HandleFunc("POST /v1/uploads", s.handleCreateUpload)
	s.mux.HandleFunc("GET /v1/uploads/{id}", s.handleGetUpload)
	s.mux.HandleFunc("POST /v1/uploads/{id}/brand-colors", s.handleEditBrandColors)

	s.mux.HandleFunc("GET /v1/command", s.handleBuildCommand)
	s.mux.HandleFunc("POST /v1/command/parse", s.handleParseCommand)

	s.mux.HandleFunc("POST /v1/jobs", s.handleCreateJob)
	s.mux.HandleFunc("GET /v1/jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("POST /v1/jobs/{id}/{action}", s.handleJobAction)
	s.mux.HandleFunc("GET /v1/jobs/{id}/svg", s.handleDownloadSVG)
	s.mux.HandleFunc("GET /v1/jobs/{id}/svg-url", s.handleSVGURL)
	s.mux.HandleFunc("GET /v1/jobs/{id}/preview.png", s.handlePreview)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(s.userIDHeader))
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	limited := io.LimitReader(r.Body, maxBodyBytes)
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
