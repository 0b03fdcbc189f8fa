package pause

import (
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
)

// Gate wraps a Detector and tracks pause state across the render loop,
// logging each transition edge exactly once no matter how many polls
// land on the same answer.
type Gate struct {
	detector Detector
	paused   bool
}

// NewGate builds a gate over detector. A nil detector disables pausing.
func NewGate(detector Detector) *Gate {
	if detector == nil {
		detector = Disabled{}
	}
	return &Gate{detector: detector}
}

// ShouldPause polls the detector and reports whether the loop must stay
// suspended this tick.
func (g *Gate) ShouldPause() bool {
	running := g.detector.GameRunning()
	if running && !g.paused {
		g.paused = true
		logger.WithComponent("pause").Info().Msg("game detected, pausing wallpaper render")
	} else if !running && g.paused {
		g.paused = false
		logger.WithComponent("pause").Info().Msg("game closed, resuming wallpaper render")
	}
	return running
}

// Paused reports the current gate state without polling.
func (g *Gate) Paused() bool { return g.paused }
