package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/port"
	"go.uber.org/zap"
)

// Decoder implements port.VideoDecoder.
type Decoder struct {
	bin        Binaries
	defaultFPS float64
	logger     *zap.Logger
}

func NewDecoder(bin Binaries, defaultFPS float64, logger *zap.Logger) *Decoder {
	return &Decoder{bin: bin, defaultFPS: defaultFPS, logger: logger}
}

// Open starts ffmpeg for path. The process lives until Close or until ctx ends.
func (d *Decoder) Open(ctx context.Context, path string) (port.VideoReader, error) {
	info, err := Probe(ctx, d.bin, path, d.defaultFPS)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, d.bin.ffmpeg(),
		"-v", "error",
		"-i", path,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	d.logger.Debug("video decoder opened",
		zap.String("path", path),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("fps", info.FPS),
		zap.Int("frames", info.FrameCount),
	)

	return &reader{
		cmd:    cmd,
		stdout: stdout,
		buf:    bufio.NewReaderSize(stdout, info.Width*info.Height*4),
		stderr: stderr,
		info:   info,
	}, nil
}

type reader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	buf    *bufio.Reader
	stderr *bytes.Buffer
	info   port.VideoInfo
	done   bool
}

func (r *reader) Info() port.VideoInfo { return r.info }

func (r *reader) Next() (*image.NRGBA, error) {
	if r.done {
		return nil, io.EOF
	}
	frame := image.NewNRGBA(image.Rect(0, 0, r.info.Width, r.info.Height))
	_, err := io.ReadFull(r.buf, frame.Pix)
	if err == nil {
		return frame, nil
	}

	r.done = true
	waitErr := r.cmd.Wait()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if waitErr != nil {
			return nil, fmt.Errorf("ffmpeg decode: %w: %s", waitErr, r.stderr.String())
		}
		return nil, io.EOF
	}
	return nil, fmt.Errorf("read frame: %w", err)
}

func (r *reader) Close() error {
	if r.done {
		return nil
	}
	r.done = true
	r.stdout.Close()
	if r.cmd.Process != nil {
		r.cmd.Process.Kill()
	}
	r.cmd.Wait()
	return nil
}
