package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

type MemoryUploadStore struct {
	mu      sync.RWMutex
	uploads map[string]domain.Upload
}

func NewMemoryUploadStore() *MemoryUploadStore {
	return &MemoryUploadStore{
		uploads: make(map[string]domain.Upload),
	}
}

func (s *MemoryUploadStore) CreateUpload(_ context.Context, upload domain.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[upload.ID] = withOwnPalette(upload)
	return nil
}

func (s *MemoryUploadStore) GetUpload(_ context.Context, id string) (domain.Upload, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	upload, ok := s.uploads[id]
	return withOwnPalette(upload), ok, nil
}

func (s *MemoryUploadStore) UpdatePalette(_ context.Context, id string, palette domain.ColorPalette) (domain.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	upload, ok := s.uploads[id]
	if !ok {
		return domain.Upload{}, ErrUploadNotFound
	}
	upload.Palette = palette
	upload.UpdatedAt = time.Now().UTC()
	upload = withOwnPalette(upload)
	s.uploads[id] = upload
	return withOwnPalette(upload), nil
}

// withOwnPalette copies the palette slices so callers can edit them in place.
func withOwnPalette(u domain.Upload) domain.Upload {
	u.Palette.DetectedColors = slices.Clone(u.Palette.DetectedColors)
	u.Palette.BrandColors = slices.Clone(u.Palette.BrandColors)
	return u
}
