package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/archive"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordingUploadCreatesThumbnail(t *testing.T) {
	files := newFiles(t)
	uc := NewRecordingUseCase(files, fakeThumbnailer{}, archive.NewZipCreator(), zap.NewNop())

	item, err := uc.Upload(context.Background(), "clip.webm", bytes.NewReader([]byte("webm")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(item.Name, "recorded_"))
	assert.True(t, strings.HasSuffix(item.Name, ".webm"))
	assert.Equal(t, int64(4), item.Size)
	assert.Equal(t, "/video/thumbnails/"+strings.TrimSuffix(item.Name, ".webm")+"_thumb.jpg", item.Thumbnail)

	list, err := uc.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, item.Thumbnail, list[0].Thumbnail)

	require.NoError(t, uc.Delete(item.Name))
	_, err = uc.Path(item.Name)
	assert.ErrorIs(t, err, filestore.ErrNotFound)
	thumbs, err := files.List(filestore.VideoThumbnails)
	require.NoError(t, err)
	assert.Empty(t, thumbs)
}

func TestRecordingUploadSurvivesThumbnailFailure(t *testing.T) {
	uc := NewRecordingUseCase(newFiles(t), fakeThumbnailer{err: errors.New("ffmpeg missing")}, archive.NewZipCreator(), zap.NewNop())

	item, err := uc.Upload(context.Background(), "clip", bytes.NewReader([]byte("webm")))
	require.NoError(t, err)
	assert.Empty(t, item.Thumbnail)
	assert.True(t, strings.HasSuffix(item.Name, ".webm"))
}

func TestSnapshotValidatesImage(t *testing.T) {
	uc := NewRecordingUseCase(newFiles(t), fakeThumbnailer{}, archive.NewZipCreator(), zap.NewNop())

	_, err := uc.Snapshot(context.Background(), []byte("nope"))
	assert.ErrorIs(t, err, ErrInvalidImage)

	item, err := uc.Snapshot(context.Background(), pngBytes(t, imageio.Solid(2, 2, red)))
	require.NoError(t, err)
	assert.Equal(t, KindSnapshot, item.Kind)
	assert.True(t, strings.HasPrefix(item.URL, "/video/snapshots/snapshot_"))
}

func TestGalleryListDeleteAndArchive(t *testing.T) {
	uc := NewRecordingUseCase(newFiles(t), fakeThumbnailer{}, archive.NewZipCreator(), zap.NewNop())
	ctx := context.Background()

	rec, err := uc.Upload(ctx, "a.webm", bytes.NewReader([]byte("webm")))
	require.NoError(t, err)
	snap, err := uc.Snapshot(ctx, pngBytes(t, imageio.Solid(2, 2, red)))
	require.NoError(t, err)

	items, err := uc.Gallery()
	require.NoError(t, err)
	require.Len(t, items, 2)

	path, err := uc.Archive(ctx)
	require.NoError(t, err)
	defer os.Remove(path)
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	zr.Close()
	assert.ElementsMatch(t, []string{rec.Name, snap.Name}, names)

	require.NoError(t, uc.DeleteGalleryItem(snap.Name))
	require.NoError(t, uc.DeleteGalleryItem(rec.Name))
	items, err = uc.Gallery()
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.ErrorIs(t, uc.DeleteGalleryItem("missing.jpg"), filestore.ErrNotFound)
}

func TestMergeNewest(t *testing.T) {
	now := time.Now()
	a := []MediaItem{{Name: "a1", ModTime: now}, {Name: "a2", ModTime: now.Add(-2 * time.Minute)}}
	b := []MediaItem{{Name: "b1", ModTime: now.Add(-time.Minute)}}

	merged := mergeNewest(a, b)
	var names []string
	for _, m := range merged {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"a1", "b1", "a2"}, names)
}
