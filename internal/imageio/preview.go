package imageio

import (
	"image"

	"github.com/nfnt/resize"
)

// Preview scales img down to width pixels wide, keeping its aspect ratio.
// Images already narrower are returned unchanged.
func Preview(img image.Image, width int) image.Image {
	if width <= 0 || img.Bounds().Dx() <= width {
		return img
	}
	return resize.Resize(uint(width), 0, img, resize.Lanczos3)
}

// WritePreview writes a scaled-down copy of img to path.
func WritePreview(path string, img image.Image, width, quality int) error {
	return Write(path, Preview(img, width), quality)
}
