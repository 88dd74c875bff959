package port

import (
	"context"
	"image"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
)

// MatteSource runs the external matting model. The returned matte may have any
// resolution; callers resize it to the frame.
type MatteSource interface {
	Infer(ctx context.Context, frame image.Image) (*entity.Matte, error)
}
