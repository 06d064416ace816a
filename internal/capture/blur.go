package capture

import (
	"image"

	"github.com/disintegration/imaging"
)

const (
	// DefaultBlurThreshold separates blurry from sharp focus scores. Flat or
	// defocused frames score near zero, frames with crisp text score well
	// above this.
	DefaultBlurThreshold = 100.0

	// analysisWidth bounds the frame size fed to the focus measure so
	// scoring cost stays flat regardless of camera resolution.
	analysisWidth = 640

	// MaxCaptureWidth bounds the stored capture. Larger frames are scaled
	// down before upload.
	MaxCaptureWidth = 1920
)

// BlurScore computes the variance of the Laplacian over a downscaled
// grayscale copy of the frame. Higher means sharper. The score is resolution
// independent because every frame is normalized to the same analysis width.
func BlurScore(img image.Image) float64 {
	if img.Bounds().Dx() > analysisWidth {
		img = imaging.Resize(img, analysisWidth, 0, imaging.Linear)
	}
	gray := imaging.Grayscale(img)

	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	if w < 3 || h < 3 {
		return 0
	}

	// The grayscale image has R = G = B, so the red channel is the
	// luminance plane.
	lum := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x*4])
	}

	// 4-neighbor Laplacian over interior pixels, then the population
	// variance of the responses.
	n := float64((w - 2) * (h - 2))
	var sum float64
	responses := make([]float64, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := 4*lum(x, y) - lum(x-1, y) - lum(x+1, y) - lum(x, y-1) - lum(x, y+1)
			responses = append(responses, v)
			sum += v
		}
	}
	mean := sum / n

	var variance float64
	for _, v := range responses {
		d := v - mean
		variance += d * d
	}
	return variance / n
}
