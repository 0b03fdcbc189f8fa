package render

import (
	"math"
	"strings"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
)

const (
	defaultSourceWidth  = 960
	defaultSourceHeight = 540
)

// qualityPreset maps a quality name to a decode resolution. Decoding at
// less than output resolution keeps ffmpeg and the texture uploads cheap;
// the sampler scales up at paint time.
func qualityPreset(quality string) (uint32, uint32, bool) {
	switch strings.ToLower(quality) {
	case "low", "720p":
		return 1280, 720, true
	case "medium", "1080p":
		return 1920, 1080, true
	case "high", "1440p":
		return 2560, 1440, true
	case "ultra", "4k", "2160p":
		return 3840, 2160, true
	default:
		return 0, 0, false
	}
}

// ChooseSourceResolution picks the shared decode resolution. Explicit
// width/height overrides beat the quality preset per axis. If the result
// exceeds the device texture limit both axes are scaled down uniformly
// so the aspect ratio survives.
func ChooseSourceResolution(quality string, overrideW, overrideH, maxDim uint32) (uint32, uint32) {
	width, height := uint32(defaultSourceWidth), uint32(defaultSourceHeight)
	if w, h, ok := qualityPreset(quality); ok {
		width, height = w, h
	}
	if overrideW > 0 {
		width = overrideW
	}
	if overrideH > 0 {
		height = overrideH
	}

	if maxDim == 0 || (width <= maxDim && height <= maxDim) {
		return width, height
	}

	scaleW := float64(maxDim) / float64(width)
	scaleH := float64(maxDim) / float64(height)
	scale := math.Min(math.Min(scaleW, scaleH), 1.0)
	clampedW := uint32(math.Floor(float64(width) * scale))
	clampedH := uint32(math.Floor(float64(height) * scale))
	if clampedW < 1 {
		clampedW = 1
	}
	if clampedH < 1 {
		clampedH = 1
	}
	logger.WithComponent("render").Warn().
		Uint32("requested_width", width).
		Uint32("requested_height", height).
		Uint32("max_texture_dimension", maxDim).
		Uint32("clamped_width", clampedW).
		Uint32("clamped_height", clampedH).
		Msg("requested source resolution exceeds GPU limit, clamping")
	return clampedW, clampedH
}
