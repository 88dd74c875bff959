package usecase

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/modnet"
	"github.com/SatNaingTun/SntImageBGChanger/internal/matting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newImageUseCase(t *testing.T, matte float32) (*ProcessImageUseCase, *filestore.Store) {
	t.Helper()
	files := newFiles(t)
	pipeline := matting.NewPipeline(modnet.Constant{Value: matte}, 16)
	return NewProcessImageUseCase(pipeline, inlineRunner{}, files, nil, zap.NewNop()), files
}

func TestProcessImageColorModeStoresOriginalAndResult(t *testing.T) {
	uc, files := newImageUseCase(t, 0)

	res, err := uc.Execute(context.Background(), ImageRequest{
		Data:     pngBytes(t, imageio.Solid(8, 8, red)),
		FileName: "portrait.PNG",
		Mode:     entity.ModeColor,
		Color:    "#00ff00",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Original, "/images/upload/"))
	assert.True(t, strings.HasSuffix(res.Original, ".png"))
	assert.True(t, strings.HasSuffix(res.Result, "_changed.jpg"))
	assert.Equal(t, "/image/download/"+filepath.Base(res.Result), res.Download)

	path, err := uc.DownloadPath(filepath.Base(res.Result))
	require.NoError(t, err)
	out, err := imageio.DecodeFile(path)
	require.NoError(t, err)
	px := out.NRGBAAt(4, 4)
	assert.InDelta(t, 0, int(px.R), 4)
	assert.InDelta(t, 255, int(px.G), 4)

	uploads, err := files.List(filestore.ImageUpload)
	require.NoError(t, err)
	assert.Len(t, uploads, 1)
}

func TestProcessImageTransparentKeepsMatteAsAlpha(t *testing.T) {
	uc, _ := newImageUseCase(t, 0.5)

	res, err := uc.Execute(context.Background(), ImageRequest{
		Data: pngBytes(t, imageio.Solid(6, 6, red)),
		Mode: entity.ModeTransparent,
	})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(res.Result, ".png"))

	path, err := uc.DownloadPath(filepath.Base(res.Result))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	_, _, _, a := img.At(3, 3).RGBA()
	assert.Equal(t, uint32(matting.AlphaByte(0.5)), a>>8)
}

func TestProcessImageCustomWithoutBackgroundUsesColour(t *testing.T) {
	uc, _ := newImageUseCase(t, 0)

	res, err := uc.Execute(context.Background(), ImageRequest{
		Data:  pngBytes(t, imageio.Solid(8, 8, red)),
		Mode:  entity.ModeCustom,
		Color: "zzzzzz",
	})
	require.NoError(t, err)

	path, err := uc.DownloadPath(filepath.Base(res.Result))
	require.NoError(t, err)
	out, err := imageio.DecodeFile(path)
	require.NoError(t, err)
	px := out.NRGBAAt(2, 2)
	assert.InDelta(t, 255, int(px.R), 2)
	assert.InDelta(t, 255, int(px.G), 2)
	assert.InDelta(t, 255, int(px.B), 2)
}

func TestProcessImageRejectsUndecodableInput(t *testing.T) {
	uc, files := newImageUseCase(t, 1)

	_, err := uc.Execute(context.Background(), ImageRequest{Data: []byte("not an image"), Mode: entity.ModeColor})
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = uc.Execute(context.Background(), ImageRequest{
		Data:       pngBytes(t, imageio.Solid(4, 4, red)),
		Mode:       entity.ModeCustom,
		Background: []byte("garbage"),
	})
	assert.ErrorIs(t, err, ErrInvalidBackground)

	uploads, err := files.List(filestore.ImageUpload)
	require.NoError(t, err)
	assert.Empty(t, uploads)
}

func TestProcessImageSimpleReturnsJPEG(t *testing.T) {
	uc, _ := newImageUseCase(t, 1)

	data, err := uc.Simple(context.Background(), pngBytes(t, imageio.Solid(8, 8, red)))
	require.NoError(t, err)
	img, err := imageio.Decode(data)
	require.NoError(t, err)
	assert.InDelta(t, 255, int(img.NRGBAAt(4, 4).R), 4)
	assert.Equal(t, "jpeg", sniffFormat(data))
}

func TestParseColorFallsBackToWhite(t *testing.T) {
	assert.Equal(t, matting.White, parseColor("zzzzzz"))
	assert.Equal(t, matting.White, parseColor(""))
	assert.Equal(t, green, parseColor("#00FF00"))
}

func sniffFormat(data []byte) string {
	if len(data) > 2 && data[0] == 0xFF && data[1] == 0xD8 {
		return "jpeg"
	}
	return "other"
}
