package usecase

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path"
	"path/filepath"
	"strings"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/filestore"
	"github.com/SatNaingTun/SntImageBGChanger/internal/matting"
)

var (
	ErrInvalidImage      = errors.New("invalid image")
	ErrInvalidBackground = errors.New("could not read background")
	ErrInvalidColor      = errors.New("invalid color")
	ErrInvalidVideo      = errors.New("invalid video upload")
)

// Runner executes a function on an interactive worker and waits for it.
type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Renderer is the per-frame matting pipeline.
type Renderer interface {
	Matte(ctx context.Context, frame *image.NRGBA) (*entity.Matte, error)
	Render(ctx context.Context, frame, background *image.NRGBA, mode entity.Mode, blurStrength int) (*image.NRGBA, error)
}

// PublicURL is the path stored files are served under.
func PublicURL(cat filestore.Category, name string) string {
	return "/" + path.Join(string(cat), name)
}

func parseColor(s string) color.NRGBA {
	return matting.ColorOrDefault(s, matting.White)
}

var videoExts = map[string]bool{".mp4": true, ".webm": true, ".mov": true, ".avi": true, ".mkv": true, ".m4v": true}

func isVideoName(name string) bool {
	return videoExts[strings.ToLower(filepath.Ext(name))]
}

func extOr(name, def string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return def
	}
	return ext
}

// resultExt is PNG for modes that carry alpha, JPEG otherwise.
func resultExt(mode entity.Mode) string {
	if mode.HasAlpha() {
		return ".png"
	}
	return ".jpg"
}
