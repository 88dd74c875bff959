package matting

import (
	"context"
	"fmt"
	"image"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/port"
	"github.com/nfnt/resize"
)

const DefaultInputSize = 512

// Pipeline runs inference and compositing for one frame at a time. It holds no
// per-frame state and is safe for concurrent use if the MatteSource is.
type Pipeline struct {
	source    port.MatteSource
	inputSize uint
}

func NewPipeline(source port.MatteSource, inputSize int) *Pipeline {
	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}
	return &Pipeline{source: source, inputSize: uint(inputSize)}
}

// Matte infers and post-processes a frame-sized matte.
func (p *Pipeline) Matte(ctx context.Context, frame *image.NRGBA) (*entity.Matte, error) {
	input := resize.Resize(p.inputSize, p.inputSize, frame, resize.Bilinear)
	raw, err := p.source.Infer(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("matte inference: %w", err)
	}
	b := frame.Bounds()
	return Postprocess(raw, b.Dy(), b.Dx()), nil
}

// Render produces the composite for frame. background is only read by the
// colour and custom modes and may be nil otherwise.
func (p *Pipeline) Render(ctx context.Context, frame, background *image.NRGBA, mode entity.Mode, blurStrength int) (*image.NRGBA, error) {
	m, err := p.Matte(ctx, frame)
	if err != nil {
		return nil, err
	}
	return Composite(frame, m, CompositeOptions{
		Mode:         mode,
		Background:   background,
		BlurStrength: blurStrength,
	})
}
