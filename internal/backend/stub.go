package backend

import (
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
)

// Stub is the headless no-op backend. It reports a fixed two-monitor
// topology and counts frames without touching a compositor or GPU, so
// the loop can run in tests and on machines with no Wayland session.
type Stub struct {
	bootstrapped bool
	stats        Stats
}

// NewStub returns a fresh stub backend.
func NewStub() *Stub { return &Stub{} }

func (s *Stub) Name() string { return "stub" }

func (s *Stub) Bootstrap() error {
	s.bootstrapped = true
	logger.WithComponent("backend").Info().Str("backend", s.Name()).Msg("bootstrap ok")
	return nil
}

func (s *Stub) DiscoverMonitors() ([]Monitor, error) {
	if !s.bootstrapped {
		return nil, ErrNotBootstrapped
	}
	return []Monitor{
		{ID: 1, Name: "DP-1", Width: 1920, Height: 1080, RefreshHz: 60},
		{ID: 2, Name: "HDMI-A-1", Width: 1920, Height: 1080, RefreshHz: 60},
	}, nil
}

func (s *Stub) BuildSurfaces(monitors []Monitor) ([]SurfaceSpec, error) {
	if !s.bootstrapped {
		return nil, ErrNotBootstrapped
	}
	specs := make([]SurfaceSpec, 0, len(monitors))
	for _, m := range monitors {
		specs = append(specs, SurfaceSpec{Monitor: m, Layer: LayerBackground})
	}
	s.stats.TotalSurfaces = len(specs)
	return specs, nil
}

func (s *Stub) RenderFrame(surfaces []SurfaceSpec) error {
	if !s.bootstrapped {
		return ErrNotBootstrapped
	}
	s.stats.FrameIndex++
	s.stats.ReadySurfaces = len(surfaces)
	if s.stats.FrameIndex%120 == 1 {
		logger.WithComponent("backend").Debug().
			Uint64("frame", s.stats.FrameIndex).
			Int("surfaces", len(surfaces)).
			Msg("stub frame")
	}
	return nil
}

func (s *Stub) Stats() Stats { return s.stats }

func (s *Stub) Close() error {
	s.bootstrapped = false
	return nil
}
