package matting

import (
	"errors"
	"fmt"
	"image"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
	"github.com/SatNaingTun/SntImageBGChanger/internal/imageio"
	"github.com/disintegration/imaging"
)

var (
	ErrMatteSize    = errors.New("matte does not match frame size")
	ErrNoBackground = errors.New("background frame required for this mode")
)

const DefaultBlurKernel = 25

type CompositeOptions struct {
	Mode entity.Mode
	// Background is required for ModeColor and ModeCustom and is resized to the frame when needed.
	Background *image.NRGBA
	// BlurStrength is the kernel size for ModeBlur, coerced by NormalizeKernelSize.
	BlurStrength int
}

// Composite blends frame against the configured background using matte as the
// foreground weight. Frame and matte must have the same dimensions.
func Composite(frame *image.NRGBA, matte *entity.Matte, opts CompositeOptions) (*image.NRGBA, error) {
	w, h := frame.Bounds().Dx(), frame.Bounds().Dy()
	if matte == nil || matte.Width != w || matte.Height != h || len(matte.Pix) < w*h {
		return nil, ErrMatteSize
	}
	frame = imageio.ToFrame(frame)

	switch opts.Mode {
	case entity.ModeTransparent:
		return Cutout(frame, matte), nil
	case entity.ModeExtractBackground:
		return ExtractBackground(frame, matte), nil
	case entity.ModeBlur:
		k := NormalizeKernelSize(opts.BlurStrength)
		blurred := imaging.Blur(frame, SigmaForKernel(k))
		return Blend(frame, blurred, matte), nil
	default:
		if opts.Background == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoBackground, opts.Mode)
		}
		bg := imageio.Resize(opts.Background, w, h)
		return Blend(frame, bg, matte), nil
	}
}

// Blend computes fg*m + bg*(1-m) per channel. Inputs must share dimensions and origin.
func Blend(fg, bg *image.NRGBA, matte *entity.Matte) *image.NRGBA {
	w, h := matte.Width, matte.Height
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		fi := fg.PixOffset(fg.Rect.Min.X, fg.Rect.Min.Y+y)
		bi := bg.PixOffset(bg.Rect.Min.X, bg.Rect.Min.Y+y)
		oi := out.PixOffset(0, y)
		for x := 0; x < w; x++ {
			m := matte.Pix[y*w+x]
			inv := 1 - m
			for c := 0; c < 3; c++ {
				out.Pix[oi+c] = toByte(float32(fg.Pix[fi+c])*m + float32(bg.Pix[bi+c])*inv)
			}
			out.Pix[oi+3] = 255
			fi += 4
			bi += 4
			oi += 4
		}
	}
	return out
}

// Cutout keeps the colour channels and uses the matte as alpha.
func Cutout(frame *image.NRGBA, matte *entity.Matte) *image.NRGBA {
	out := imageio.ToFrame(frame)
	for i, m := range matte.Pix[:matte.Width*matte.Height] {
		out.Pix[i*4+3] = AlphaByte(m)
	}
	return out
}

// ExtractBackground zeroes the foreground: frame*(1-m).
func ExtractBackground(frame *image.NRGBA, matte *entity.Matte) *image.NRGBA {
	out := imageio.ToFrame(frame)
	for i, m := range matte.Pix[:matte.Width*matte.Height] {
		inv := 1 - m
		for c := 0; c < 3; c++ {
			out.Pix[i*4+c] = toByte(float32(out.Pix[i*4+c]) * inv)
		}
	}
	return out
}

// Premultiply multiplies colour by the matte and makes the frame opaque; used where
// the output container has no alpha channel.
func Premultiply(frame *image.NRGBA, matte *entity.Matte) *image.NRGBA {
	out := imageio.ToFrame(frame)
	for i, m := range matte.Pix[:matte.Width*matte.Height] {
		for c := 0; c < 3; c++ {
			out.Pix[i*4+c] = toByte(float32(out.Pix[i*4+c]) * m)
		}
	}
	return out
}

// AlphaByte scales a matte value in [0,1] to an 8-bit alpha.
func AlphaByte(m float32) uint8 {
	return toByte(m * 255)
}

func toByte(v float32) uint8 {
	v += 0.5
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
