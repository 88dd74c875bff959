package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressStore keeps progress records in a table so any instance can answer a poll.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) Write(ctx context.Context, jobID string, p entity.Progress) error {
	query := `
		INSERT INTO job_progress (job_id, progress, stage, written_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (job_id) DO UPDATE SET
			progress=EXCLUDED.progress, stage=EXCLUDED.stage, written_at=EXCLUDED.written_at`

	if _, err := s.pool.Exec(ctx, query, jobID, p.Progress, p.Stage, p.Timestamp); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Read(ctx context.Context, jobID string) (entity.Progress, bool, error) {
	var p entity.Progress
	err := s.pool.QueryRow(ctx,
		`SELECT progress, stage, written_at FROM job_progress WHERE job_id=$1`, jobID,
	).Scan(&p.Progress, &p.Stage, &p.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Progress{}, false, nil
	}
	if err != nil {
		return entity.Progress{}, false, fmt.Errorf("read progress: %w", err)
	}
	return p, true, nil
}

// Prune keeps the keep most recently written records.
func (s *ProgressStore) Prune(ctx context.Context, keep int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM job_progress WHERE job_id NOT IN (
			SELECT job_id FROM job_progress ORDER BY written_at DESC LIMIT $1
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune progress: %w", err)
	}
	return tag.RowsAffected(), nil
}
