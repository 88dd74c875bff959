package usecase

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/port"
	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ImageRequest struct {
	Data         []byte
	FileName     string
	Mode         entity.Mode
	Color        string
	Background   []byte
	BlurStrength int
}

type ImageResult struct {
	Original string `json:"original"`
	Result   string `json:"result"`
	Download string `json:"download"`
}

type ProcessImageUseCase struct {
	pipeline Renderer
	runner   Runner
	files    *filestore.Store
	mirror   port.ResultMirror
	logger   *zap.Logger
}

// NewProcessImageUseCase wires the single-image flow. mirror may be nil.
func NewProcessImageUseCase(pipeline Renderer, runner Runner, files *filestore.Store, mirror port.ResultMirror, logger *zap.Logger) *ProcessImageUseCase {
	return &ProcessImageUseCase{pipeline: pipeline, runner: runner, files: files, mirror: mirror, logger: logger}
}

func (uc *ProcessImageUseCase) Execute(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "ProcessImageUseCase.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("mode", string(req.Mode)))
	start := time.Now()

	frame, err := imageio.Decode(req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	var bg *image.NRGBA
	mode := req.Mode
	switch {
	case mode == entity.ModeCustom && len(req.Background) > 0:
		bg, err = imageio.Decode(req.Background)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBackground, err)
		}
	case mode == entity.ModeColor || mode == entity.ModeCustom:
		mode = entity.ModeColor
		b := frame.Bounds()
		bg = imageio.Solid(b.Dx(), b.Dy(), parseColor(req.Color))
	}

	base := filestore.NewName("")
	originalName := base + extOr(req.FileName, ".jpg")
	if _, err := uc.files.SaveBytes(filestore.ImageUpload, originalName, req.Data); err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}
	if bg != nil && mode == entity.ModeCustom {
		if _, err := uc.files.SaveBytes(filestore.ImageBackground, base+"_bg"+extOr(req.FileName, ".jpg"), req.Background); err != nil {
			uc.logger.Warn("could not store background", zap.Error(err))
		}
	}

	var out *image.NRGBA
	err = uc.runner.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = uc.pipeline.Render(ctx, frame, bg, mode, req.BlurStrength)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("render image: %w", err)
	}

	ext := resultExt(mode)
	data, err := encodeResult(out, ext)
	if err != nil {
		return nil, err
	}
	changedName := base + "_changed" + ext
	path, err := uc.files.SaveBytes(filestore.ImageChanged, changedName, data)
	if err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}
	uc.mirrorResult(ctx, path, changedName, ext)

	metrics.FramesCompositedTotal.WithLabelValues("image").Inc()
	metrics.StageDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())

	return &ImageResult{
		Original: PublicURL(filestore.ImageUpload, originalName),
		Result:   PublicURL(filestore.ImageChanged, changedName),
		Download: "/image/download/" + changedName,
	}, nil
}

// Simple composites over white and returns JPEG bytes without storing anything.
func (uc *ProcessImageUseCase) Simple(ctx context.Context, data []byte) ([]byte, error) {
	frame, err := imageio.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	b := frame.Bounds()
	bg := imageio.Solid(b.Dx(), b.Dy(), parseColor(""))

	var out *image.NRGBA
	err = uc.runner.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = uc.pipeline.Render(ctx, frame, bg, entity.ModeColor, 0)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("render image: %w", err)
	}
	metrics.FramesCompositedTotal.WithLabelValues("simple").Inc()
	return imageio.EncodeJPEG(out, imageio.DefaultJPEGQuality)
}

// DownloadPath resolves a processed image for download.
func (uc *ProcessImageUseCase) DownloadPath(name string) (string, error) {
	return uc.files.Path(filestore.ImageChanged, name)
}

func (uc *ProcessImageUseCase) mirrorResult(ctx context.Context, path, name, ext string) {
	if uc.mirror == nil {
		return
	}
	contentType := "image/jpeg"
	if ext == ".png" {
		contentType = "image/png"
	}
	if err := uc.mirror.MirrorFile(ctx, filepath.ToSlash(filepath.Join("images", name)), path, contentType); err != nil {
		uc.logger.Warn("mirror image result failed", zap.String("name", name), zap.Error(err))
	}
}

func encodeResult(img image.Image, ext string) ([]byte, error) {
	if ext == ".png" {
		return imageio.EncodePNG(img)
	}
	return imageio.EncodeJPEG(img, imageio.DefaultJPEGQuality)
}
