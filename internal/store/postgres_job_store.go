package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS uploads (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size BIGINT NOT NULL,
	digest TEXT NOT NULL,
	object_key TEXT NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	palette JSONB NOT NULL,
	structure JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	upload_id TEXT NOT NULL REFERENCES uploads (id),
	user_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	control TEXT NOT NULL DEFAULT '',
	settings JSONB NOT NULL,
	webhook_url TEXT NOT NULL DEFAULT '',
	progress JSONB NOT NULL,
	result JSONB,
	svg_object_key TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS usage_logs (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	job_id TEXT NOT NULL,
	upload_id TEXT NOT NULL,
	source_bytes BIGINT NOT NULL,
	path_count INTEGER NOT NULL,
	size_reduction INTEGER NOT NULL,
	compute_time_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

const finishedStatuses = `('succeeded', 'failed', 'stopped')`

// PostgresStore keeps uploads, jobs and usage logs in one database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateUpload(ctx context.Context, upload domain.Upload) error {
	paletteJSON, err := json.Marshal(upload.Palette)
	if err != nil {
		return fmt.Errorf("marshal upload palette: %w", err)
	}
	structureJSON, err := json.Marshal(upload.Structure)
	if err != nil {
		return fmt.Errorf("marshal upload structure: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO uploads (id, name, content_type, size, digest, object_key, width, height, palette, structure, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		upload.ID,
		upload.Name,
		upload.ContentType,
		upload.Size,
		upload.Digest,
		upload.ObjectKey,
		upload.Width,
		upload.Height,
		paletteJSON,
		structureJSON,
		upload.CreatedAt,
		upload.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUpload(ctx context.Context, id string) (domain.Upload, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, content_type, size, digest, object_key, width, height, palette, structure, created_at, updated_at
		 FROM uploads
		 WHERE id = $1`,
		id,
	)

	var (
		upload        domain.Upload
		paletteJSON   []byte
		structureJSON []byte
	)
	if err := row.Scan(
		&upload.ID,
		&upload.Name,
		&upload.ContentType,
		&upload.Size,
		&upload.Digest,
		&upload.ObjectKey,
		&upload.Width,
		&upload.Height,
		&paletteJSON,
		&structureJSON,
		&upload.CreatedAt,
		&upload.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Upload{}, false, nil
		}
		return domain.Upload{}, false, fmt.Errorf("query upload: %w", err)
	}

	if err := json.Unmarshal(paletteJSON, &upload.Palette); err != nil {
		return domain.Upload{}, false, fmt.Errorf("unmarshal upload palette: %w", err)
	}
	if err := json.Unmarshal(structureJSON, &upload.Structure); err != nil {
		return domain.Upload{}, false, fmt.Errorf("unmarshal upload structure: %w", err)
	}
	return upload, true, nil
}

func (s *PostgresStore) UpdatePalette(ctx context.Context, id string, palette domain.ColorPalette) (domain.Upload, error) {
	paletteJSON, err := json.Marshal(palette)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("marshal upload palette: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE uploads SET palette = $1, updated_at = $2 WHERE id = $3`,
		paletteJSON,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("update upload palette: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Upload{}, ErrUploadNotFound
	}

	upload, ok, err := s.GetUpload(ctx, id)
	if err != nil {
		return domain.Upload{}, err
	}
	if !ok {
		return domain.Upload{}, ErrUploadNotFound
	}
	return upload, nil
}

func (s *PostgresStore) Create(ctx context.Context, job domain.Job) error {
	settingsJSON, err := json.Marshal(job.Settings)
	if err != nil {
		return fmt.Errorf("marshal job settings: %w", err)
	}
	progressJSON, err := json.Marshal(job.Progress)
	if err != nil {
		return fmt.Errorf("marshal job progress: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (id, upload_id, user_id, status, control, settings, webhook_url, progress, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID,
		job.UploadID,
		job.UserID,
		job.Status,
		job.Control,
		settingsJSON,
		job.WebhookURL,
		progressJSON,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (domain.Job, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, upload_id, user_id, status, control, settings, webhook_url, progress, result, svg_object_key, created_at, updated_at
		 FROM jobs
		 WHERE id = $1`,
		id,
	)

	var (
		job          domain.Job
		settingsJSON []byte
		progressJSON []byte
		resultJSON   []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.UploadID,
		&job.UserID,
		&job.Status,
		&job.Control,
		&settingsJSON,
		&job.WebhookURL,
		&progressJSON,
		&resultJSON,
		&job.SVGObjectKey,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, fmt.Errorf("query job: %w", err)
	}

	if err := json.Unmarshal(settingsJSON, &job.Settings); err != nil {
		return domain.Job{}, false, fmt.Errorf("unmarshal job settings: %w", err)
	}
	if err := json.Unmarshal(progressJSON, &job.Progress); err != nil {
		return domain.Job{}, false, fmt.Errorf("unmarshal job progress: %w", err)
	}
	if len(resultJSON) > 0 {
		job.Result = &domain.ProcessingResult{}
		if err := json.Unmarshal(resultJSON, job.Result); err != nil {
			return domain.Job{}, false, fmt.Errorf("unmarshal job result: %w", err)
		}
	}

	return job, true, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id, status string) (domain.Job, error) {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
		 SET status = $1, updated_at = $2
		 WHERE id = $3`,
		status,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return domain.Job{}, fmt.Errorf("update job status: %w", err)
	}
	return s.mustGet(ctx, id)
}

func (s *PostgresStore) UpdateProgress(ctx context.Context, id string, progress domain.ProgressState) (domain.Job, error) {
	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return domain.Job{}, fmt.Errorf("marshal job progress: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
		 SET progress = $1, status = $2, updated_at = $3
		 WHERE id = $4 AND status NOT IN `+finishedStatuses,
		progressJSON,
		jobStatusFor(progress.Status),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return domain.Job{}, fmt.Errorf("update job progress: %w", err)
	}
	return s.afterGuardedUpdate(ctx, id, res)
}

func (s *PostgresStore) SetControl(ctx context.Context, id, control string) (domain.Job, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
		 SET control = $1, updated_at = $2
		 WHERE id = $3 AND status NOT IN `+finishedStatuses,
		control,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return domain.Job{}, fmt.Errorf("update job control: %w", err)
	}
	return s.afterGuardedUpdate(ctx, id, res)
}

func (s *PostgresStore) Complete(ctx context.Context, id string, c Completion) (domain.Job, error) {
	progressJSON, err := json.Marshal(c.Progress)
	if err != nil {
		return domain.Job{}, fmt.Errorf("marshal job progress: %w", err)
	}
	var resultJSON []byte
	if c.Result != nil {
		if resultJSON, err = json.Marshal(c.Result); err != nil {
			return domain.Job{}, fmt.Errorf("marshal job result: %w", err)
		}
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
		 SET status = $1, control = '', progress = $2, result = $3, svg_object_key = $4, updated_at = $5
		 WHERE id = $6 AND status NOT IN `+finishedStatuses,
		c.Status,
		progressJSON,
		resultJSON,
		c.SVGObjectKey,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return domain.Job{}, fmt.Errorf("complete job: %w", err)
	}
	return s.afterGuardedUpdate(ctx, id, res)
}

func (s *PostgresStore) CreateUsageLog(ctx context.Context, usage domain.UsageLog) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO usage_logs (user_id, job_id, upload_id, source_bytes, path_count, size_reduction, compute_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		usage.UserID,
		usage.JobID,
		usage.UploadID,
		usage.SourceBytes,
		usage.PathCount,
		usage.SizeReduction,
		usage.ComputeTimeMS,
		usage.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}

// afterGuardedUpdate tells a missing job apart from one that already finished.
func (s *PostgresStore) afterGuardedUpdate(ctx context.Context, id string, res sql.Result) (domain.Job, error) {
	job, err := s.mustGet(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return job, domain.ErrJobFinished
	}
	return job, nil
}

func (s *PostgresStore) mustGet(ctx context.Context, id string) (domain.Job, error) {
	job, ok, err := s.Get(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if !ok {
		return domain.Job{}, ErrJobNotFound
	}
	return job, nil
}
