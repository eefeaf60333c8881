package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

type MemoryJobStore struct {
	mu    sync.RWMutex
	jobs  map[string]domain.Job
	usage []domain.UsageLog
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]domain.Job),
	}
}

func (s *MemoryJobStore) Create(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (domain.Job, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok, nil
}

func (s *MemoryJobStore) UpdateStatus(_ context.Context, id, status string) (domain.Job, error) {
	return s.mutate(id, false, func(job *domain.Job) {
		job.Status = status
	})
}

func (s *MemoryJobStore) UpdateProgress(_ context.Context, id string, progress domain.ProgressState) (domain.Job, error) {
	return s.mutate(id, true, func(job *domain.Job) {
		job.Progress = progress
		job.Status = jobStatusFor(progress.Status)
	})
}

func (s *MemoryJobStore) SetControl(_ context.Context, id, control string) (domain.Job, error) {
	return s.mutate(id, true, func(job *domain.Job) {
		job.Control = control
	})
}

func (s *MemoryJobStore) Complete(_ context.Context, id string, c Completion) (domain.Job, error) {
	return s.mutate(id, true, func(job *domain.Job) {
		job.Status = c.Status
		job.Control = domain.ControlNone
		job.Progress = c.Progress
		job.Result = c.Result
		job.SVGObjectKey = c.SVGObjectKey
	})
}

func (s *MemoryJobStore) CreateUsageLog(_ context.Context, usage domain.UsageLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, usage)
	return nil
}

func (s *MemoryJobStore) UsageLogs() []domain.UsageLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.usage)
}

func (s *MemoryJobStore) mutate(id string, rejectFinished bool, fn func(job *domain.Job)) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, ErrJobNotFound
	}
	if rejectFinished && job.Finished() {
		return job, domain.ErrJobFinished
	}

	fn(&job)
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job
	return job, nil
}
