// Package framesource produces decoded RGBA frames for one monitor.
//
// A source is either empty (no frames, the caller keeps its placeholder),
// a still image, or a live ffmpeg decoder subprocess emitting raw
// fixed-size frames on its stdout.
package framesource

import (
	"os"
	"strings"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/config"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
)

// Source delivers decoded frames of exactly width*height*4 bytes.
type Source interface {
	// FillNextFrame fills dst with the next frame and reports whether dst
	// was updated. A false return means the caller keeps showing whatever
	// it last uploaded; it is never fatal.
	FillNextFrame(dst []byte) bool

	// Path returns the source media path, empty for the empty source.
	Path() string

	// Close releases the source. Decoder subprocesses are killed and
	// reaped; Close is safe to call more than once.
	Close()
}

// Empty is the no-frames source.
type Empty struct{}

func (Empty) FillNextFrame([]byte) bool { return false }
func (Empty) Path() string              { return "" }
func (Empty) Close()                    {}

var stillExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// FromPath builds the right source for path at the fixed target
// resolution. Every failure degrades to Empty with a logged reason; one
// monitor's broken video must never take the process down.
func FromPath(path string, width, height int, opts config.VideoOptions) Source {
	log := logger.WithComponent("framesource")

	if _, err := os.Stat(path); err != nil {
		log.Warn().Str("path", path).Err(err).
			Msg("video path does not exist, using placeholder")
		return Empty{}
	}

	if stillExtensions[strings.ToLower(extOf(path))] {
		src, err := NewStillImage(path, width, height)
		if err != nil {
			log.Warn().Str("path", path).Err(err).
				Msg("still image source disabled, using placeholder")
			return Empty{}
		}
		return src
	}

	src, err := NewFFmpeg(path, width, height, opts)
	if err != nil {
		log.Warn().Str("path", path).Err(err).
			Msg("ffmpeg source disabled, using placeholder")
		return Empty{}
	}
	return src
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}
