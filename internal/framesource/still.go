package framesource

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// StillImage serves a single decoded picture as a wallpaper frame. The
// first fill delivers the scaled image, later fills report no change so
// the render layer never re-uploads it.
type StillImage struct {
	path      string
	frame     []byte
	delivered bool
}

// NewStillImage decodes path and scales it to width x height with an
// aspect-preserving center crop, matching what the video decoder does
// for moving sources.
func NewStillImage(path string, width, height int) (*StillImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, centerCrop(src.Bounds(), width, height), draw.Src, nil)

	return &StillImage{path: path, frame: dst.Pix}, nil
}

// centerCrop picks the largest source rectangle with the target aspect
// ratio, centered in bounds.
func centerCrop(bounds image.Rectangle, width, height int) image.Rectangle {
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	if srcW == 0 || srcH == 0 || width == 0 || height == 0 {
		return bounds
	}

	targetAspect := float64(width) / float64(height)
	srcAspect := float64(srcW) / float64(srcH)

	cropW, cropH := srcW, srcH
	if srcAspect > targetAspect {
		cropW = int(float64(srcH) * targetAspect)
	} else {
		cropH = int(float64(srcW) / targetAspect)
	}
	x0 := bounds.Min.X + (srcW-cropW)/2
	y0 := bounds.Min.Y + (srcH-cropH)/2
	return image.Rect(x0, y0, x0+cropW, y0+cropH)
}

func (s *StillImage) Path() string { return s.path }

func (s *StillImage) FillNextFrame(dst []byte) bool {
	if s.delivered {
		return false
	}
	copy(dst, s.frame)
	s.delivered = true
	return true
}

func (s *StillImage) Close() {}
