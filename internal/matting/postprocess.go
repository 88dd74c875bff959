package matting

import (
	"math"

	"github.com/SatNaingTun/SntImageBGChanger/internal/domain/entity"
)

// WeakAlphaThreshold: matte values at or below it are treated as background noise.
const WeakAlphaThreshold = 0.2

// Postprocess turns a raw model mask into a frame-sized matte: bilinear resize,
// clip, weak-value suppression and a 5x5 Gaussian smoothing pass. It never fails;
// an empty raw mask yields an all-zero matte.
func Postprocess(raw *entity.Matte, height, width int) *entity.Matte {
	if raw.Empty() {
		return entity.NewMatte(width, height)
	}

	m := ResizeBilinear(raw, width, height)
	Clip(m)
	for i, v := range m.Pix {
		if v <= WeakAlphaThreshold {
			m.Pix[i] = 0
		}
	}
	convolveSeparable(m.Pix, m.Width, m.Height, matteKernel)
	Clip(m)
	return m
}

// Clip clamps every value to [0,1] in place and returns m. NaN becomes 0.
func Clip(m *entity.Matte) *entity.Matte {
	for i, v := range m.Pix {
		switch {
		case math.IsNaN(float64(v)):
			m.Pix[i] = 0
		case v < 0:
			m.Pix[i] = 0
		case v > 1:
			m.Pix[i] = 1
		}
	}
	return m
}

// ResizeBilinear resamples with pixel-centre alignment.
func ResizeBilinear(src *entity.Matte, width, height int) *entity.Matte {
	dst := entity.NewMatte(width, height)
	if src.Empty() || dst.Empty() {
		return dst
	}
	if src.Width == width && src.Height == height {
		copy(dst.Pix, src.Pix)
		return dst
	}

	sx := float64(src.Width) / float64(width)
	sy := float64(src.Height) / float64(height)

	for y := 0; y < height; y++ {
		y0, y1, fy := sampleAxis(y, sy, src.Height)
		for x := 0; x < width; x++ {
			x0, x1, fx := sampleAxis(x, sx, src.Width)

			top := lerp(float64(src.At(x0, y0)), float64(src.At(x1, y0)), fx)
			bottom := lerp(float64(src.At(x0, y1)), float64(src.At(x1, y1)), fx)
			dst.Set(x, y, float32(lerp(top, bottom, fy)))
		}
	}
	return dst
}

func sampleAxis(d int, scale float64, n int) (i0, i1 int, frac float64) {
	pos := (float64(d)+0.5)*scale - 0.5
	if pos < 0 {
		pos = 0
	}
	base := math.Floor(pos)
	i0 = int(base)
	if i0 >= n-1 {
		return n - 1, n - 1, 0
	}
	return i0, i0 + 1, pos - base
}

// lerp is written as a+t*(b-a) so equal endpoints reproduce exactly.
func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}
