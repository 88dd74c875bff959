// Package memory holds job records in process memory for single-instance runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/google/uuid"
)

type JobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]entity.Job
}

func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[uuid.UUID]entity.Job)}
}

func (r *JobRepository) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *JobRepository) Update(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; !exists {
		return fmt.Errorf("update job %s: %w", job.ID, entity.ErrJobNotFound)
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *JobRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, entity.ErrJobNotFound
	}
	return &job, nil
}
