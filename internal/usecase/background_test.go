package usecase

import (
	"bytes"
	"context"
	"testing"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBackgroundUploadAndResolve(t *testing.T) {
	uc := NewBackgroundUseCase(newFiles(t), zap.NewNop())
	ctx := context.Background()

	img, err := uc.Upload(ctx, "beach.png", bytes.NewReader(pngBytes(t, imageio.Solid(4, 4, green))))
	require.NoError(t, err)
	assert.Equal(t, entity.BackgroundImage, img.Kind)

	vid, err := uc.Upload(ctx, "loop.MP4", bytes.NewReader([]byte("video")))
	require.NoError(t, err)
	assert.Equal(t, entity.BackgroundVideo, vid.Kind)

	assert.Equal(t, entity.BackgroundImage, uc.Resolve(img.ID, red).Kind)
	assert.Equal(t, entity.BackgroundVideo, uc.Resolve(vid.ID, red).Kind)

	missing := uc.Resolve("nothing.png", red)
	assert.Equal(t, entity.SolidBackground(red), missing)
	assert.Equal(t, entity.SolidBackground(red), uc.Resolve("", red))
}

func TestBackgroundUploadRejectsBrokenImage(t *testing.T) {
	uc := NewBackgroundUseCase(newFiles(t), zap.NewNop())
	_, err := uc.Upload(context.Background(), "bg.jpg", bytes.NewReader([]byte("nope")))
	assert.ErrorIs(t, err, ErrInvalidBackground)
}

func TestSolidBackground(t *testing.T) {
	uc := NewBackgroundUseCase(newFiles(t), zap.NewNop())

	_, err := uc.Solid(context.Background(), "zzzzzz")
	assert.ErrorIs(t, err, ErrInvalidColor)

	bg, err := uc.Solid(context.Background(), "#00ff00")
	require.NoError(t, err)
	spec := uc.Resolve(bg.ID, red)
	require.Equal(t, entity.BackgroundImage, spec.Kind)

	frame, err := imageio.DecodeFile(spec.Path)
	require.NoError(t, err)
	assert.Equal(t, 1280, frame.Bounds().Dx())
	assert.Equal(t, 720, frame.Bounds().Dy())
}
