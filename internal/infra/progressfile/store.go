// Package progressfile stores job progress as one small JSON file per job, for
// single-machine deployments where the web process and the job share a disk.
package progressfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create progress dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// FileName is the record name for jobID inside the progress directory.
func FileName(jobID string) string {
	return "progress_" + jobID + ".json"
}

func (s *Store) path(jobID string) (string, error) {
	name, err := filestore.CleanName(FileName(jobID))
	if err != nil || name != FileName(jobID) {
		return "", fmt.Errorf("invalid job id %q", jobID)
	}
	return filepath.Join(s.dir, name), nil
}

// Write replaces the record atomically so readers never observe a partial file.
func (s *Store) Write(_ context.Context, jobID string, p entity.Progress) error {
	path, err := s.path(jobID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".progress-*")
	if err != nil {
		return fmt.Errorf("create temp progress file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close progress: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish progress: %w", err)
	}
	return nil
}

func (s *Store) Read(_ context.Context, jobID string) (entity.Progress, bool, error) {
	path, err := s.path(jobID)
	if err != nil {
		return entity.Progress{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return entity.Progress{}, false, nil
		}
		return entity.Progress{}, false, err
	}
	var p entity.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return entity.Progress{}, false, fmt.Errorf("decode progress %s: %w", jobID, err)
	}
	return p, true, nil
}
