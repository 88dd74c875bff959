package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/port"
	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
	"go.uber.org/zap"
)

const (
	KindRecording = "recording"
	KindSnapshot  = "snapshot"
)

type MediaItem struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	URL       string    `json:"url"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"modified"`
}

// RecordingUseCase manages browser recordings, snapshots and the gallery built
// from them.
type RecordingUseCase struct {
	files       *filestore.Store
	thumbnailer port.Thumbnailer
	archiver    port.Archiver
	logger      *zap.Logger
}

func NewRecordingUseCase(files *filestore.Store, thumbnailer port.Thumbnailer, archiver port.Archiver, logger *zap.Logger) *RecordingUseCase {
	return &RecordingUseCase{files: files, thumbnailer: thumbnailer, archiver: archiver, logger: logger}
}

func thumbName(recording string) string {
	return strings.TrimSuffix(recording, filepath.Ext(recording)) + "_thumb.jpg"
}

// Upload stores a recording and tries to cut a thumbnail from it. A missing
// thumbnail does not fail the upload.
func (uc *RecordingUseCase) Upload(ctx context.Context, fileName string, r io.Reader) (MediaItem, error) {
	name := "recorded_" + filestore.NewName(extOr(fileName, ".webm"))
	path, err := uc.files.Save(filestore.VideoRecorded, name, r)
	if err != nil {
		return MediaItem{}, fmt.Errorf("store recording: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return MediaItem{}, err
	}
	item := MediaItem{
		Name:    name,
		Kind:    KindRecording,
		URL:     PublicURL(filestore.VideoRecorded, name),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}

	thumb := thumbName(name)
	thumbPath, err := uc.files.Reserve(filestore.VideoThumbnails, thumb)
	if err == nil {
		err = uc.thumbnailer.Thumbnail(ctx, path, thumbPath)
	}
	if err != nil {
		uc.logger.Warn("thumbnail failed", zap.String("recording", name), zap.Error(err))
		return item, nil
	}
	if _, err := uc.files.Enforce(filestore.VideoThumbnails); err != nil {
		uc.logger.Warn("thumbnail retention failed", zap.Error(err))
	}
	item.Thumbnail = PublicURL(filestore.VideoThumbnails, thumb)
	return item, nil
}

func (uc *RecordingUseCase) List() ([]MediaItem, error) {
	return uc.list(filestore.VideoRecorded, KindRecording)
}

func (uc *RecordingUseCase) Path(name string) (string, error) {
	return uc.files.Path(filestore.VideoRecorded, name)
}

// Delete removes a recording together with its thumbnail.
func (uc *RecordingUseCase) Delete(name string) error {
	if err := uc.files.Remove(filestore.VideoRecorded, name); err != nil {
		return err
	}
	if err := uc.files.Remove(filestore.VideoThumbnails, thumbName(name)); err != nil && !errors.Is(err, filestore.ErrNotFound) {
		uc.logger.Warn("thumbnail delete failed", zap.String("recording", name), zap.Error(err))
	}
	return nil
}

// Snapshot stores a still captured from the live view. The bytes must decode.
func (uc *RecordingUseCase) Snapshot(_ context.Context, data []byte) (MediaItem, error) {
	if _, err := imageio.Decode(data); err != nil {
		return MediaItem{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	name := "snapshot_" + filestore.NewName(".jpg")
	path, err := uc.files.SaveBytes(filestore.VideoSnapshots, name, data)
	if err != nil {
		return MediaItem{}, fmt.Errorf("store snapshot: %w", err)
	}
	item := MediaItem{Name: name, Kind: KindSnapshot, URL: PublicURL(filestore.VideoSnapshots, name), Size: int64(len(data))}
	if info, err := os.Stat(path); err == nil {
		item.ModTime = info.ModTime()
	}
	return item, nil
}

// Gallery lists recordings and snapshots, newest first.
func (uc *RecordingUseCase) Gallery() ([]MediaItem, error) {
	recordings, err := uc.list(filestore.VideoRecorded, KindRecording)
	if err != nil {
		return nil, err
	}
	snapshots, err := uc.list(filestore.VideoSnapshots, KindSnapshot)
	if err != nil {
		return nil, err
	}
	return mergeNewest(recordings, snapshots), nil
}

// DeleteGalleryItem removes name from whichever gallery category holds it.
func (uc *RecordingUseCase) DeleteGalleryItem(name string) error {
	if _, err := uc.files.Path(filestore.VideoSnapshots, name); err == nil {
		return uc.files.Remove(filestore.VideoSnapshots, name)
	}
	return uc.Delete(name)
}

// Archive zips every gallery item into a temporary file. The caller removes it.
func (uc *RecordingUseCase) Archive(ctx context.Context) (string, error) {
	var paths []string
	for _, cat := range []filestore.Category{filestore.VideoRecorded, filestore.VideoSnapshots} {
		files, err := uc.files.List(cat)
		if err != nil {
			return "", err
		}
		for _, f := range files {
			paths = append(paths, filepath.Join(uc.files.Dir(cat), f.Name))
		}
	}

	tmp, err := os.CreateTemp("", "gallery-*.zip")
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	out := tmp.Name()
	tmp.Close()

	if err := uc.archiver.CreateZip(ctx, paths, out); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("create archive: %w", err)
	}
	return out, nil
}

func (uc *RecordingUseCase) list(cat filestore.Category, kind string) ([]MediaItem, error) {
	files, err := uc.files.List(cat)
	if err != nil {
		return nil, err
	}
	items := make([]MediaItem, 0, len(files))
	for _, f := range files {
		item := MediaItem{
			Name:    f.Name,
			Kind:    kind,
			URL:     PublicURL(cat, f.Name),
			Size:    f.Size,
			ModTime: f.ModTime,
		}
		if kind == KindRecording {
			if _, err := uc.files.Path(filestore.VideoThumbnails, thumbName(f.Name)); err == nil {
				item.Thumbnail = PublicURL(filestore.VideoThumbnails, thumbName(f.Name))
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// mergeNewest merges two newest-first lists.
func mergeNewest(a, b []MediaItem) []MediaItem {
	out := make([]MediaItem, 0, len(a)+len(b))
	for len(a) > 0 && len(b) > 0 {
		if !b[0].ModTime.After(a[0].ModTime) {
			out = append(out, a[0])
			a = a[1:]
		} else {
			out = append(out, b[0])
			b = b[1:]
		}
	}
	out = append(out, a...)
	return append(out, b...)
}
