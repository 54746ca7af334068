package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/scolarite-api/internal/models"
)

// FileDatasetStore keeps the dataset as one YAML file on disk.
type FileDatasetStore struct {
	path   string
	logger *zap.Logger
}

// NewFileDatasetStore constructs a store for path.
func NewFileDatasetStore(path string, logger *zap.Logger) *FileDatasetStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileDatasetStore{path: path, logger: logger}
}

// Path returns the backing file location.
func (s *FileDatasetStore) Path() string {
	return s.path
}

// Load returns the persisted dataset, or an empty one when the file is absent
// or unreadable. A file that cannot be parsed is moved aside first so the next
// save does not overwrite it.
func (s *FileDatasetStore) Load(ctx context.Context) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("dataset file unreadable, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return models.NewDataset(), nil
	}
	dataset, err := DecodeDataset(raw)
	if err != nil {
		aside := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().UTC().Format("20060102T150405"))
		if renameErr := os.Rename(s.path, aside); renameErr != nil {
			return nil, fmt.Errorf("quarantine corrupt dataset: %w", renameErr)
		}
		s.logger.Warn("dataset file corrupt, moved aside", zap.String("path", s.path), zap.String("moved_to", aside), zap.Error(err))
		return models.NewDataset(), nil
	}
	return dataset, nil
}

// Save replaces the file atomically: write a sibling temp file, fsync, rename.
func (s *FileDatasetStore) Save(ctx context.Context, dataset *models.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeDataset(dataset)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare data directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp dataset: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp dataset: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp dataset: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}
