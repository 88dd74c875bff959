package matting

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	value float32
	err   error
	seen  image.Rectangle
}

func (s *fixedSource) Infer(_ context.Context, frame image.Image) (*entity.Matte, error) {
	s.seen = frame.Bounds()
	if s.err != nil {
		return nil, s.err
	}
	return entity.NewFilledMatte(16, 16, s.value), nil
}

func TestPipelineMatteUsesModelInputSize(t *testing.T) {
	src := &fixedSource{value: 1}
	p := NewPipeline(src, 64)

	m, err := p.Matte(context.Background(), imageio.Solid(30, 20, color.NRGBA{A: 255}))

	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), src.seen)
	assert.Equal(t, 30, m.Width)
	assert.Equal(t, 20, m.Height)
}

func TestPipelineRenderTransparent(t *testing.T) {
	p := NewPipeline(&fixedSource{value: 1}, 0)
	frame := imageio.Solid(10, 10, color.NRGBA{R: 9, G: 8, B: 7, A: 255})

	out, err := p.Render(context.Background(), frame, nil, entity.ModeTransparent, 0)

	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 9, G: 8, B: 7, A: 255}, out.NRGBAAt(3, 3))
}

func TestPipelineInferenceError(t *testing.T) {
	boom := errors.New("model offline")
	p := NewPipeline(&fixedSource{err: boom}, 32)

	_, err := p.Render(context.Background(), imageio.Solid(4, 4, White), imageio.Solid(4, 4, White), entity.ModeColor, 0)

	assert.ErrorIs(t, err, boom)
}
