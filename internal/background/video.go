package background

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/port"
	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"go.uber.org/zap"
)

var ErrEmptyVideo = errors.New("background video has no frames")

// VideoCursor plays a background video in a loop. Every Frame call returns the
// next frame and advances the cursor. One frame is read ahead, so the cursor
// rewinds to frame 0 as soon as the last frame has been served. A read failure
// part way through also rewinds. Read-and-advance is serialised by a mutex.
type VideoCursor struct {
	path    string
	decoder port.VideoDecoder
	logger  *zap.Logger

	mu         sync.Mutex
	reader     port.VideoReader
	pending    *image.NRGBA
	position   int
	frameCount int
}

func NewVideoCursor(path string, decoder port.VideoDecoder, logger *zap.Logger) *VideoCursor {
	return &VideoCursor{path: path, decoder: decoder, logger: logger}
}

func (c *VideoCursor) Path() string { return c.path }

// Position is the index of the frame the next call will return.
func (c *VideoCursor) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// FrameCount is the stream length, 0 until known.
func (c *VideoCursor) FrameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameCount
}

func (c *VideoCursor) Frame(ctx context.Context, width, height int) (*image.NRGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame, err := c.next(ctx)
	if err != nil {
		return nil, err
	}
	return imageio.Resize(frame, width, height), nil
}

func (c *VideoCursor) next(ctx context.Context) (*image.NRGBA, error) {
	frame, err := c.read(ctx)
	if err != nil {
		return nil, err
	}

	c.position++
	if c.frameCount > 0 && c.position >= c.frameCount {
		c.rewind()
		return frame, nil
	}
	next, err := c.reader.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			c.frameCount = c.position
		} else {
			c.logger.Warn("background video read failed, looping",
				zap.String("path", c.path), zap.Int("position", c.position), zap.Error(err))
		}
		c.rewind()
		return frame, nil
	}
	c.pending = next
	return frame, nil
}

// read returns the frame at position, opening the stream when needed.
func (c *VideoCursor) read(ctx context.Context) (*image.NRGBA, error) {
	if c.pending != nil {
		frame := c.pending
		c.pending = nil
		return frame, nil
	}
	if err := c.open(ctx); err != nil {
		return nil, err
	}
	frame, err := c.reader.Next()
	if err != nil {
		c.rewind()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrEmptyVideo, c.path)
		}
		return nil, fmt.Errorf("read background video %s: %w", c.path, err)
	}
	return frame, nil
}

func (c *VideoCursor) open(ctx context.Context) error {
	if c.reader != nil {
		return nil
	}
	// The decoder outlives the request that first touched the cursor.
	r, err := c.decoder.Open(context.WithoutCancel(ctx), c.path)
	if err != nil {
		return fmt.Errorf("open background video %s: %w", c.path, err)
	}
	c.reader = r
	if n := r.Info().FrameCount; n > 0 && c.frameCount == 0 {
		c.frameCount = n
	}
	return nil
}

func (c *VideoCursor) rewind() {
	c.closeReader()
	c.pending = nil
	c.position = 0
}

func (c *VideoCursor) closeReader() {
	if c.reader == nil {
		return
	}
	if err := c.reader.Close(); err != nil {
		c.logger.Debug("close background video", zap.String("path", c.path), zap.Error(err))
	}
	c.reader = nil
}

func (c *VideoCursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeReader()
	return nil
}
