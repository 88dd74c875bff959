package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	job := NewJob(ModeColor, "#00ff00", 25, "in.mp4", "out.mp4", "")
	assert.Equal(t, JobStatusCreated, job.Status)

	require.NoError(t, job.MarkStarting())
	require.NoError(t, job.MarkProcessing(10, 25))
	require.NoError(t, job.MarkDone(9, 1))

	assert.Equal(t, JobStatusDone, job.Status)
	assert.Equal(t, 9, job.ProcessedFrames)
	assert.Equal(t, 1, job.SkippedFrames)
	assert.NotNil(t, job.CompletedAt)
	assert.True(t, job.IsTerminal())
}

func TestJobTerminalStatesAreFinal(t *testing.T) {
	job := NewJob(ModeColor, "", 0, "in.mp4", "out.mp4", "")
	require.NoError(t, job.MarkFailed("cannot open input"))

	assert.ErrorIs(t, job.MarkFailed("again"), ErrInvalidTransition)
	assert.ErrorIs(t, job.MarkProcessing(1, 25), ErrInvalidTransition)
	assert.Equal(t, "cannot open input", job.ErrorMessage)

	done := NewJob(ModeColor, "", 0, "in.mp4", "out.mp4", "")
	require.NoError(t, done.MarkProcessing(1, 25))
	require.NoError(t, done.MarkDone(1, 0))
	assert.ErrorIs(t, done.MarkFailed("late"), ErrInvalidTransition)
	assert.Equal(t, JobStatusDone, done.Status)
}

func TestJobDoneRequiresProcessing(t *testing.T) {
	job := NewJob(ModeBlur, "", 25, "in.mp4", "out.mp4", "")
	assert.ErrorIs(t, job.MarkDone(0, 0), ErrInvalidTransition)
}
