package memory

import (
	"context"
	"testing"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()
	job := entity.NewJob(entity.ModeColor, "#ffffff", 25, "in.mp4", "out.mp4", "")

	require.NoError(t, repo.Create(ctx, job))
	assert.Error(t, repo.Create(ctx, job))

	require.NoError(t, job.MarkStarting())
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusStarting, got.Status)

	got.Status = entity.JobStatusFailed
	again, _ := repo.FindByID(ctx, job.ID)
	assert.Equal(t, entity.JobStatusStarting, again.Status, "stored record must not alias returned copies")

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, entity.ErrJobNotFound)

	assert.ErrorIs(t, repo.Update(ctx, entity.NewJob(entity.ModeBlur, "", 3, "a", "b", "")), entity.ErrJobNotFound)
}
