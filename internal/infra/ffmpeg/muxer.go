package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrNoFrames = errors.New("no frames to encode")

// Muxer encodes frames as H.264 MP4 with the moov atom up front so browsers can
// start playback before the download finishes.
type Muxer struct {
	bin    Binaries
	logger *zap.Logger
}

func NewMuxer(bin Binaries, logger *zap.Logger) *Muxer {
	return &Muxer{bin: bin, logger: logger}
}

func (m *Muxer) Mux(ctx context.Context, frames []*image.NRGBA, fps float64, outputPath string) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	size := frames[0].Bounds().Size()
	for i, f := range frames {
		if f.Bounds().Size() != size {
			return fmt.Errorf("frame %d is %v, want %v", i, f.Bounds().Size(), size)
		}
	}
	if fps <= 0 {
		fps = 25
	}

	cmd := exec.CommandContext(ctx, m.bin.ffmpeg(),
		"-v", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", size.X, size.Y),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "pipe:0",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outputPath,
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	var g errgroup.Group
	g.Go(func() error {
		defer stdin.Close()
		for i, f := range frames {
			if err := writeFrame(stdin, f); err != nil {
				return fmt.Errorf("write frame %d: %w", i, err)
			}
		}
		return nil
	})
	writeErr := g.Wait()
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encode: %w: %s", err, stderr.String())
	}
	if writeErr != nil {
		return writeErr
	}

	m.logger.Debug("video encoded",
		zap.String("output", outputPath),
		zap.Int("frames", len(frames)),
		zap.Float64("fps", fps),
	)
	return nil
}

func writeFrame(w io.Writer, f *image.NRGBA) error {
	rowLen := f.Rect.Dx() * 4
	if f.Stride == rowLen {
		_, err := w.Write(f.Pix[:rowLen*f.Rect.Dy()])
		return err
	}
	for y := 0; y < f.Rect.Dy(); y++ {
		start := y * f.Stride
		if _, err := w.Write(f.Pix[start : start+rowLen]); err != nil {
			return err
		}
	}
	return nil
}

// Thumbnailer grabs one frame half a second in, for recording previews.
type Thumbnailer struct {
	bin Binaries
}

func NewThumbnailer(bin Binaries) *Thumbnailer {
	return &Thumbnailer{bin: bin}
}

func (t *Thumbnailer) Thumbnail(ctx context.Context, videoPath string, outputPath string) error {
	cmd := exec.CommandContext(ctx, t.bin.ffmpeg(),
		"-v", "error",
		"-y",
		"-ss", "0.5",
		"-i", videoPath,
		"-vframes", "1",
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg thumbnail: %w, output: %s", err, string(output))
	}
	return nil
}
