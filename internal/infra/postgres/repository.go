package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO matting_jobs (
			id, mode, color, blur_strength, input_path, output_path,
			background_path, notify_email, status, total_frames,
			processed_frames, skipped_frames, fps, error_message,
			created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Mode), job.Color, job.BlurStrength, job.InputPath, job.OutputPath,
		job.BackgroundPath, job.NotifyEmail, string(job.Status), job.TotalFrames,
		job.ProcessedFrames, job.SkippedFrames, job.FPS, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE matting_jobs SET
			status=$2, total_frames=$3, processed_frames=$4, skipped_frames=$5,
			fps=$6, error_message=$7, updated_at=$8, completed_at=$9
		WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.TotalFrames, job.ProcessedFrames, job.SkippedFrames,
		job.FPS, job.ErrorMessage, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update job %s: %w", job.ID, entity.ErrJobNotFound)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	query := `
		SELECT id, mode, color, blur_strength, input_path, output_path,
			background_path, notify_email, status, total_frames,
			processed_frames, skipped_frames, fps, error_message,
			created_at, updated_at, completed_at
		FROM matting_jobs WHERE id=$1`

	job := &entity.Job{}
	var mode, status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &mode, &job.Color, &job.BlurStrength, &job.InputPath, &job.OutputPath,
		&job.BackgroundPath, &job.NotifyEmail, &status, &job.TotalFrames,
		&job.ProcessedFrames, &job.SkippedFrames, &job.FPS, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Mode = entity.Mode(mode)
	job.Status = entity.JobStatus(status)
	return job, nil
}
