package background

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/port"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/metrics"
	"go.uber.org/zap"
)

type Factory struct {
	decoder port.VideoDecoder
	logger  *zap.Logger
}

func NewFactory(decoder port.VideoDecoder, logger *zap.Logger) *Factory {
	return &Factory{decoder: decoder, logger: logger}
}

// Open builds the provider described by spec. It fails if an image cannot be
// decoded or a video file does not exist.
func (f *Factory) Open(spec entity.BackgroundSpec) (Provider, error) {
	switch spec.Kind {
	case entity.BackgroundImage:
		return NewImage(spec.Path)
	case entity.BackgroundVideo:
		if _, err := os.Stat(spec.Path); err != nil {
			return nil, fmt.Errorf("background video: %w", err)
		}
		return NewVideoCursor(spec.Path, f.decoder, f.logger), nil
	default:
		return NewSolid(spec.Color), nil
	}
}

// OpenOrSolid is Open with the documented default: any failure yields a Solid
// provider of spec.Color. Video providers also degrade to that colour per frame
// when the stream cannot be read at all.
func (f *Factory) OpenOrSolid(spec entity.BackgroundSpec) Provider {
	p, err := f.Open(spec)
	if err != nil {
		f.fallback(spec, err)
		return NewSolid(spec.Color)
	}
	if spec.Kind == entity.BackgroundVideo {
		return f.WithFallback(p, spec)
	}
	return p
}

// WithFallback serves spec.Color for any frame p fails to produce.
func (f *Factory) WithFallback(p Provider, spec entity.BackgroundSpec) Provider {
	return &withFallback{primary: p, solid: NewSolid(spec.Color), spec: spec, factory: f}
}

func (f *Factory) fallback(spec entity.BackgroundSpec, err error) {
	metrics.BackgroundFallbacksTotal.WithLabelValues(string(spec.Kind)).Inc()
	f.logger.Warn("background unavailable, using solid colour",
		zap.String("kind", string(spec.Kind)),
		zap.String("path", spec.Path),
		zap.Error(err),
	)
}

type withFallback struct {
	primary Provider
	solid   *Solid
	spec    entity.BackgroundSpec
	factory *Factory
}

func (w *withFallback) Frame(ctx context.Context, width, height int) (*image.NRGBA, error) {
	frame, err := w.primary.Frame(ctx, width, height)
	if err != nil {
		w.factory.fallback(w.spec, err)
		return w.solid.Frame(ctx, width, height)
	}
	return frame, nil
}

func (w *withFallback) Close() error {
	return w.primary.Close()
}
