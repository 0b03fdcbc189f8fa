// Package runtime drives a backend through its lifecycle: bootstrap,
// monitor discovery, surface creation, then the paced render loop with
// the game-pause gate in front of it.
package runtime

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/backend"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/backend/wayland"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/config"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/pause"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/scheduler"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/videomap"
)

// defaultPauseSlice is how long the loop sleeps between pause checks
// while a game holds the wallpaper.
const defaultPauseSlice = 500 * time.Millisecond

// SelectBackend picks the backend named in the configuration. "auto"
// takes the wayland backend when a session is advertised and falls back
// to the stub otherwise.
func SelectBackend(cfg *config.Config, store *videomap.Store) (backend.Backend, error) {
	log := logger.WithComponent("runtime")

	waylandBackend := func() backend.Backend {
		return wayland.New(wayland.Options{
			Store:        store,
			Video:        cfg.Video,
			Quality:      cfg.Quality,
			SourceWidth:  uint32(cfg.SourceWidth),
			SourceHeight: uint32(cfg.SourceHeight),
		})
	}

	switch cfg.Backend {
	case "stub":
		return backend.NewStub(), nil
	case "wayland":
		return waylandBackend(), nil
	case "auto", "":
		if os.Getenv("WAYLAND_DISPLAY") != "" {
			return waylandBackend(), nil
		}
		log.Warn().Msg("WAYLAND_DISPLAY not set, falling back to stub backend")
		return backend.NewStub(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want stub, wayland or auto)", cfg.Backend)
	}
}

// BuildDetector returns the game detector the configuration asks for.
func BuildDetector(cfg *config.Config) pause.Detector {
	if !cfg.PauseOnGame {
		return pause.Disabled{}
	}
	switch cfg.GameDetector {
	case "none", "off":
		return pause.Disabled{}
	case "gamemode":
		d, err := pause.NewGameModeDetector(cfg.GamePoll)
		if err != nil {
			logger.WithComponent("runtime").Warn().Err(err).
				Msg("gamemode detector unavailable, falling back to steam process scan")
			return pause.NewSteamDetector(cfg.GamePoll)
		}
		return d
	default:
		return pause.NewSteamDetector(cfg.GamePoll)
	}
}

// Snapshot is the loop's published state, consumed by the status API.
type Snapshot struct {
	Backend   string            `json:"backend"`
	Monitors  []backend.Monitor `json:"monitors"`
	Stats     backend.Stats     `json:"stats"`
	Paused    bool              `json:"paused"`
	StartedAt time.Time         `json:"started_at"`
}

// RenderRuntime owns the render loop.
type RenderRuntime struct {
	cfg     *config.Config
	backend backend.Backend
	gate    *pause.Gate
	sched   *scheduler.FrameScheduler
	log     *zerolog.Logger

	pauseSlice time.Duration

	mu       sync.RWMutex
	snapshot Snapshot
}

func New(cfg *config.Config, b backend.Backend, gate *pause.Gate) *RenderRuntime {
	return &RenderRuntime{
		cfg:        cfg,
		backend:    b,
		gate:       gate,
		sched:      scheduler.New(cfg.TargetFPS),
		log:        logger.WithComponent("runtime"),
		pauseSlice: defaultPauseSlice,
	}
}

// Snapshot returns the latest published loop state.
func (r *RenderRuntime) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

func (r *RenderRuntime) publish(monitors []backend.Monitor, paused bool, startedAt time.Time) {
	r.mu.Lock()
	r.snapshot = Snapshot{
		Backend:   r.backend.Name(),
		Monitors:  monitors,
		Stats:     r.backend.Stats(),
		Paused:    paused,
		StartedAt: startedAt,
	}
	r.mu.Unlock()
}

// Run executes the loop until the context is cancelled, the configured
// frame bound is reached, or the backend fails. Cancellation is a
// normal exit.
func (r *RenderRuntime) Run(ctx context.Context) error {
	if err := r.backend.Bootstrap(); err != nil {
		return fmt.Errorf("bootstrap %s backend: %w", r.backend.Name(), err)
	}
	defer func() {
		if err := r.backend.Close(); err != nil {
			r.log.Warn().Err(err).Msg("backend close failed")
		}
	}()

	monitors, err := r.backend.DiscoverMonitors()
	if err != nil {
		return fmt.Errorf("discover monitors: %w", err)
	}
	for _, m := range monitors {
		r.log.Info().
			Str("monitor", m.Name).
			Uint32("width", m.Width).
			Uint32("height", m.Height).
			Uint32("refresh_hz", m.RefreshHz).
			Msg("monitor discovered")
	}

	surfaces, err := r.backend.BuildSurfaces(monitors)
	if err != nil {
		return fmt.Errorf("build surfaces: %w", err)
	}
	r.log.Info().
		Str("backend", r.backend.Name()).
		Int("surfaces", len(surfaces)).
		Int("target_fps", r.cfg.TargetFPS).
		Msg("render loop starting")

	startedAt := time.Now()
	var frames uint64
	for {
		if ctx.Err() != nil {
			r.log.Info().Uint64("frames", frames).Msg("render loop stopped")
			return nil
		}

		if r.gate != nil && r.gate.ShouldPause() {
			r.publish(monitors, true, startedAt)
			if !sleepCtx(ctx, r.pauseSlice) {
				return nil
			}
			continue
		}

		frameStart := time.Now()
		if err := r.backend.RenderFrame(surfaces); err != nil {
			return fmt.Errorf("render frame: %w", err)
		}
		frames++
		r.publish(monitors, false, startedAt)

		if r.cfg.MaxFrames > 0 && frames >= r.cfg.MaxFrames {
			r.log.Info().Uint64("frames", frames).Msg("frame bound reached")
			return nil
		}

		if remaining := r.sched.Remaining(time.Since(frameStart)); remaining > 0 {
			if !sleepCtx(ctx, remaining) {
				return nil
			}
		}
	}
}

// sleepCtx sleeps for d and reports false when the context was
// cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
