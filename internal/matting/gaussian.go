package matting

// matteKernel is the 5-tap binomial used for edge smoothing.
var matteKernel = []float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

// NormalizeKernelSize coerces a blur strength into an odd kernel size >= 3.
func NormalizeKernelSize(k int) int {
	if k%2 == 0 {
		k++
	}
	if k < 3 {
		k = 3
	}
	return k
}

// SigmaForKernel derives a Gaussian sigma from a kernel size.
func SigmaForKernel(k int) float64 {
	return 0.3*((float64(k)-1)*0.5-1) + 0.8
}

// reflect101 maps an out-of-range index back into [0, n) mirroring around the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// convolveSeparable applies kernel horizontally then vertically in place.
func convolveSeparable(pix []float32, w, h int, kernel []float64) {
	if w == 0 || h == 0 {
		return
	}
	r := len(kernel) / 2
	tmp := make([]float64, w*h)

	for y := 0; y < h; y++ {
		row := pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var sum float64
			for k := -r; k <= r; k++ {
				sum += float64(row[reflect101(x+k, w)]) * kernel[k+r]
			}
			tmp[y*w+x] = sum
		}
	}

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			var sum float64
			for k := -r; k <= r; k++ {
				sum += tmp[reflect101(y+k, h)*w+x] * kernel[k+r]
			}
			pix[y*w+x] = float32(sum)
		}
	}
}
