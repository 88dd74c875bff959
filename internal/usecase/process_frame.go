package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/background"
	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/metrics"
	"go.uber.org/zap"
)

// AnonymousSession holds the background cursors of frame requests that carry no
// session id.
const AnonymousSession = "anonymous"

type FrameRequest struct {
	Data         []byte
	Mode         entity.Mode
	Color        string
	Background   []byte
	BackgroundID string
	SessionID    string
	BlurStrength int
}

type FrameResult struct {
	Result    string `json:"result"`
	SavedPath string `json:"saved_path,omitempty"`
}

// ProcessFrameUseCase handles single webcam frames and live stream frames. Video
// backgrounds advance one frame per call on a cursor owned by the caller's session.
type ProcessFrameUseCase struct {
	pipeline    Renderer
	runner      Runner
	files       *filestore.Store
	backgrounds *BackgroundUseCase
	sessions    *background.Sessions
	factory     *background.Factory
	logger      *zap.Logger
}

func NewProcessFrameUseCase(
	pipeline Renderer,
	runner Runner,
	files *filestore.Store,
	backgrounds *BackgroundUseCase,
	sessions *background.Sessions,
	factory *background.Factory,
	logger *zap.Logger,
) *ProcessFrameUseCase {
	return &ProcessFrameUseCase{
		pipeline:    pipeline,
		runner:      runner,
		files:       files,
		backgrounds: backgrounds,
		sessions:    sessions,
		factory:     factory,
		logger:      logger,
	}
}

// Execute composites one frame, stores the JPEG and returns it as a data URL.
func (uc *ProcessFrameUseCase) Execute(ctx context.Context, req FrameRequest) (*FrameResult, error) {
	out, err := uc.Render(ctx, req)
	if err != nil {
		return nil, err
	}

	ext := resultExt(req.Mode)
	data, err := encodeResult(out, ext)
	if err != nil {
		return nil, err
	}
	name := filestore.NewName(ext)
	if _, err := uc.files.SaveBytes(filestore.VideoFrames, name, data); err != nil {
		return nil, fmt.Errorf("store frame: %w", err)
	}

	mime := "image/jpeg"
	if ext == ".png" {
		mime = "image/png"
	}
	return &FrameResult{
		Result:    "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
		SavedPath: PublicURL(filestore.VideoFrames, name),
	}, nil
}

// Stream composites a live frame and returns encoded bytes without storing them.
func (uc *ProcessFrameUseCase) Stream(ctx context.Context, req FrameRequest) ([]byte, error) {
	out, err := uc.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	return encodeResult(out, resultExt(req.Mode))
}

// EndSession releases the background cursors of a finished stream.
func (uc *ProcessFrameUseCase) EndSession(session string) {
	uc.sessions.Release(session)
}

func (uc *ProcessFrameUseCase) Render(ctx context.Context, req FrameRequest) (*image.NRGBA, error) {
	start := time.Now()
	frame, err := imageio.Decode(req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	mode := req.Mode
	var bg *image.NRGBA
	if mode == entity.ModeColor || mode == entity.ModeCustom {
		bg, mode = uc.background(ctx, req, frame.Bounds())
	}

	var out *image.NRGBA
	err = uc.runner.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = uc.pipeline.Render(ctx, frame, bg, mode, req.BlurStrength)
		return err
	})
	if err != nil {
		metrics.FramesSkippedTotal.Inc()
		return nil, fmt.Errorf("render frame: %w", err)
	}

	metrics.FramesCompositedTotal.WithLabelValues("frame").Inc()
	metrics.StageDuration.WithLabelValues("frame").Observe(time.Since(start).Seconds())
	return out, nil
}

// background picks the replacement pixels for a frame: uploaded bytes first, then
// a stored background id, then the solid colour. Every failure degrades to the colour.
func (uc *ProcessFrameUseCase) background(ctx context.Context, req FrameRequest, bounds image.Rectangle) (*image.NRGBA, entity.Mode) {
	w, h := bounds.Dx(), bounds.Dy()
	fallback := parseColor(req.Color)

	if len(req.Background) > 0 {
		bg, err := imageio.Decode(req.Background)
		if err == nil {
			return bg, entity.ModeCustom
		}
		uc.logger.Warn("undecodable frame background, using colour", zap.Error(err))
		metrics.BackgroundFallbacksTotal.WithLabelValues(string(entity.BackgroundImage)).Inc()
	}

	if req.BackgroundID != "" {
		spec := uc.backgrounds.Resolve(req.BackgroundID, fallback)
		session := req.SessionID
		if session == "" {
			session = AnonymousSession
		}
		var provider background.Provider
		switch spec.Kind {
		case entity.BackgroundVideo:
			provider = uc.factory.WithFallback(uc.sessions.Cursor(session, spec.Path), spec)
		case entity.BackgroundImage:
			img, err := uc.sessions.Image(session, spec.Path)
			if err != nil {
				uc.logger.Warn("unreadable frame background, using colour", zap.String("path", spec.Path), zap.Error(err))
				metrics.BackgroundFallbacksTotal.WithLabelValues(string(entity.BackgroundImage)).Inc()
			} else {
				provider = img
			}
		}
		if provider != nil {
			if bg, err := provider.Frame(ctx, w, h); err == nil {
				return bg, entity.ModeCustom
			}
		}
	}

	return imageio.Solid(w, h, fallback), entity.ModeColor
}
