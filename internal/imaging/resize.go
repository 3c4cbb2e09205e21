// Package imaging provides optional inspection and downscaling of generated
// diagram images. The directive treats a nil Rescaler as "image processing
// unavailable" and skips resizing.
package imaging

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// Rescaler inspects image files and scales them down in place.
type Rescaler interface {
	// Width returns the pixel width of the image at path.
	Width(path string) (int, error)
	// ScaleToWidth rescales the image at path to the given width,
	// preserving aspect ratio, and saves it in place.
	ScaleToWidth(path string, width int) error
}

// FileRescaler implements Rescaler on image files using disintegration/imaging.
type FileRescaler struct{}

// NewFileRescaler returns a Rescaler backed by disintegration/imaging.
func NewFileRescaler() *FileRescaler { return &FileRescaler{} }

func (FileRescaler) Width(path string) (int, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open image %s: %w", path, err)
	}
	return img.Bounds().Dx(), nil
}

func (FileRescaler) ScaleToWidth(path string, width int) error {
	if width <= 0 {
		return fmt.Errorf("invalid target width %d", width)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("open image %s: %w", path, err)
	}
	resized := imaging.Resize(img, width, 0, imaging.Lanczos)
	if err := imaging.Save(resized, path); err != nil {
		return fmt.Errorf("save resized image %s: %w", path, err)
	}
	return nil
}
