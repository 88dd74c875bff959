// Package background supplies the replacement pixels composited behind the
// foreground: a solid colour, a still image, or a looping video.
package background

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
)

// Provider returns a background frame of exactly width x height. Returned frames
// may be shared cached buffers; callers must not modify them.
type Provider interface {
	Frame(ctx context.Context, width, height int) (*image.NRGBA, error)
	Close() error
}

type size struct{ w, h int }

// Solid keeps one constant-colour buffer per requested size.
type Solid struct {
	color color.NRGBA

	mu    sync.Mutex
	cache map[size]*image.NRGBA
}

func NewSolid(c color.NRGBA) *Solid {
	c.A = 255
	return &Solid{color: c, cache: make(map[size]*image.NRGBA)}
}

func (s *Solid) Color() color.NRGBA { return s.color }

func (s *Solid) Frame(_ context.Context, width, height int) (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := size{width, height}
	if buf, ok := s.cache[key]; ok {
		return buf, nil
	}
	buf := imageio.Solid(width, height, s.color)
	s.cache[key] = buf
	return buf, nil
}

func (s *Solid) Close() error { return nil }

// Image decodes its source once and caches one resized copy per size.
type Image struct {
	path   string
	source *image.NRGBA

	mu    sync.Mutex
	cache map[size]*image.NRGBA
}

// NewImage fails when path cannot be read or decoded.
func NewImage(path string) (*Image, error) {
	src, err := imageio.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("load background image %s: %w", path, err)
	}
	return &Image{path: path, source: src, cache: make(map[size]*image.NRGBA)}, nil
}

func (i *Image) Frame(_ context.Context, width, height int) (*image.NRGBA, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	key := size{width, height}
	if buf, ok := i.cache[key]; ok {
		return buf, nil
	}
	buf := imageio.Resize(i.source, width, height)
	i.cache[key] = buf
	return buf, nil
}

func (i *Image) Close() error { return nil }
