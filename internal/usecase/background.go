package usecase

import (
	"context"
	"fmt"
	"image/color"
	"io"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
	"github.com/SatNaingTun/SntImageBGChanger/internal/matting"
	"go.uber.org/zap"
)

// Solid backgrounds are stored at 720p and scaled to each frame.
const solidWidth, solidHeight = 1280, 720

type StoredBackground struct {
	ID   string                `json:"id"`
	Kind entity.BackgroundKind `json:"kind"`
	URL  string                `json:"url"`
}

// BackgroundUseCase stores reusable backgrounds and turns client references into
// background specs.
type BackgroundUseCase struct {
	files  *filestore.Store
	logger *zap.Logger
}

func NewBackgroundUseCase(files *filestore.Store, logger *zap.Logger) *BackgroundUseCase {
	return &BackgroundUseCase{files: files, logger: logger}
}

// Upload stores an image or video background. Images must decode.
func (uc *BackgroundUseCase) Upload(_ context.Context, fileName string, r io.Reader) (StoredBackground, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return StoredBackground{}, fmt.Errorf("read background: %w", err)
	}

	if isVideoName(fileName) {
		name := filestore.NewName(extOr(fileName, ".mp4"))
		if _, err := uc.files.SaveBytes(filestore.VideoBackground, name, data); err != nil {
			return StoredBackground{}, err
		}
		return StoredBackground{ID: name, Kind: entity.BackgroundVideo, URL: PublicURL(filestore.VideoBackground, name)}, nil
	}

	if _, err := imageio.Decode(data); err != nil {
		return StoredBackground{}, fmt.Errorf("%w: %v", ErrInvalidBackground, err)
	}
	name := filestore.NewName(extOr(fileName, ".jpg"))
	if _, err := uc.files.SaveBytes(filestore.ImageBackground, name, data); err != nil {
		return StoredBackground{}, err
	}
	return StoredBackground{ID: name, Kind: entity.BackgroundImage, URL: PublicURL(filestore.ImageBackground, name)}, nil
}

// Solid renders and stores a plain background. Unlike per-request colours, a
// malformed colour here is an error.
func (uc *BackgroundUseCase) Solid(_ context.Context, hex string) (StoredBackground, error) {
	c, err := matting.ParseHexColor(hex)
	if err != nil {
		return StoredBackground{}, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	data, err := imageio.EncodeJPEG(imageio.Solid(solidWidth, solidHeight, c), imageio.DefaultJPEGQuality)
	if err != nil {
		return StoredBackground{}, err
	}
	name := filestore.NewName(".jpg")
	if _, err := uc.files.SaveBytes(filestore.ImageBackground, name, data); err != nil {
		return StoredBackground{}, err
	}
	return StoredBackground{ID: name, Kind: entity.BackgroundImage, URL: PublicURL(filestore.ImageBackground, name)}, nil
}

// Resolve maps a stored background id to a spec. Unknown ids resolve to the
// solid fallback colour.
func (uc *BackgroundUseCase) Resolve(id string, fallback color.NRGBA) entity.BackgroundSpec {
	if id == "" {
		return entity.SolidBackground(fallback)
	}
	if path, err := uc.files.Path(filestore.VideoBackground, id); err == nil {
		return entity.VideoBackground(path, fallback)
	}
	if path, err := uc.files.Path(filestore.ImageBackground, id); err == nil {
		return entity.ImageBackground(path, fallback)
	}
	uc.logger.Debug("background not found, using solid colour", zap.String("id", id))
	return entity.SolidBackground(fallback)
}
