package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, "local", cfg.JobDispatch)
	assert.Equal(t, 512, cfg.MatteInputSize)
	assert.Equal(t, 100, cfg.MaxImageFiles)
	assert.Equal(t, 5, cfg.MaxVideoUploads)
	assert.Equal(t, "file", cfg.ProgressBackend)
	assert.Equal(t, int64(512<<20), cfg.MaxUploadBytes)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("POOL_BATCH_WORKERS", "4")
	t.Setenv("MATTE_BACKEND", "constant")
	t.Setenv("MINIO_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 4, cfg.BatchWorkers)
	assert.Equal(t, "constant", cfg.MatteBackend)
	assert.True(t, cfg.MinIOEnabled)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}
