package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dhima/usage-log/pkg/logging"
	"github.com/dhima/usage-log/pkg/models"
	"go.uber.org/zap"
)

// FileStore keeps the state as a JSON document on disk. Writes go to a temp
// file in the same directory and are renamed into place.
type FileStore struct {
	path   string
	logger logging.Logger
}

func NewFileStore(path string, logger logging.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logging.OrNoOp(logger).With(zap.String("backend", "file"), zap.String("path", path)),
	}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Read(_ context.Context) (*models.State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return decodeOrAbsent(data, s.logger), nil
}

func (s *FileStore) Write(_ context.Context, state models.State) (err error) {
	data, err := EncodeState(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".usage-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
