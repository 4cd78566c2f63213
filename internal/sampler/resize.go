package sampler

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Resize scales img so its longer edge equals maxDimension, keeping aspect
// ratio. Images already within bounds are returned unchanged.
func Resize(img image.Image, maxDimension int) image.Image {
	if img == nil || maxDimension <= 0 {
		return img
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDimension && height <= maxDimension {
		return img
	}

	newWidth, newHeight := TargetSize(width, height, maxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// TargetSize computes the resized dimensions for a width × height image.
func TargetSize(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}
	if width >= height {
		other := int(math.Round(float64(height) * float64(maxDimension) / float64(width)))
		return maxDimension, max(other, 1)
	}
	other := int(math.Round(float64(width) * float64(maxDimension) / float64(height)))
	return max(other, 1), maxDimension
}
