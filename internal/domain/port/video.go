package port

import (
	"context"
	"image"
)

type VideoInfo struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	Duration   float64
}

// VideoReader yields frames in display order. Next returns io.EOF after the last frame.
type VideoReader interface {
	Info() VideoInfo
	Next() (*image.NRGBA, error)
	Close() error
}

type VideoDecoder interface {
	Open(ctx context.Context, path string) (VideoReader, error)
}

type Muxer interface {
	Mux(ctx context.Context, frames []*image.NRGBA, fps float64, outputPath string) error
}

type Thumbnailer interface {
	Thumbnail(ctx context.Context, videoPath string, outputPath string) error
}
