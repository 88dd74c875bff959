package progressfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	_, found, err := s.Read(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)

	want := entity.Progress{Progress: 42.5, Stage: entity.StageProcessing, Timestamp: 1700000000.25}
	require.NoError(t, s.Write(ctx, "abc", want))

	got, found, err := s.Read(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	raw, err := os.ReadFile(filepath.Join(dir, "progress_abc.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"progress":42.5,"stage":"processing","timestamp":1700000000.25}`, string(raw))

	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1)
}

func TestReadCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "progress_bad.json"), []byte(`{"progress":`), 0o644))

	_, _, err = s.Read(context.Background(), "bad")
	assert.Error(t, err)
}

func TestRejectsPathLikeIDs(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.Write(context.Background(), "../escape", entity.InitializingProgress()))
	_, _, err = s.Read(context.Background(), "a/b")
	assert.Error(t, err)
}
