// Package wayland hosts looping video wallpapers on wlr layer-shell
// compositors. It speaks the wire protocol directly over the unix
// socket, keeps one background layer surface per output, and presents
// GPU-rendered frames through double-buffered shared-memory pools.
package wayland

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/backend"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/config"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/render"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/videomap"
)

const layerSurfaceNamespace = "kitsune-rendercore"

// eventWait bounds the blocking dispatch used when no surface is ready,
// so a stalled compositor cannot wedge the render loop.
const eventWait = 100 * time.Millisecond

// Options carries the video selection and decode configuration into the
// backend.
type Options struct {
	Store        *videomap.Store
	Video        config.VideoOptions
	Quality      string
	SourceWidth  uint32
	SourceHeight uint32
}

// Backend implements backend.Backend on a live Wayland session.
type Backend struct {
	opts Options
	log  *zerolog.Logger

	conn     *Conn
	state    *State
	renderer *render.Manager
	pools    map[uint32]*shmPool

	bootstrapped bool
	frameIndex   uint64
}

func New(opts Options) *Backend {
	return &Backend{
		opts:  opts,
		log:   logger.WithComponent("backend.wayland"),
		pools: map[uint32]*shmPool{},
	}
}

func (b *Backend) Name() string { return "wayland-layer" }

// Bootstrap connects, discovers globals, creates one layer surface per
// output, and brings up the GPU. The first roundtrip settles the
// registry; the second settles output geometry and the initial
// configure events.
func (b *Backend) Bootstrap() error {
	conn, err := Dial()
	if err != nil {
		return fmt.Errorf("connect wayland display: %w", err)
	}

	state := newState()
	reg, err := conn.GetRegistry()
	if err != nil {
		conn.Close()
		return err
	}
	state.bindGlobals(reg)
	if err := conn.Roundtrip(); err != nil {
		conn.Close()
		return fmt.Errorf("wayland roundtrip: %w", err)
	}

	if err := state.checkCapabilities(); err != nil {
		conn.Close()
		return err
	}
	if err := state.createLayerSurfaces(layerSurfaceNamespace); err != nil {
		conn.Close()
		return err
	}
	if err := conn.Roundtrip(); err != nil {
		conn.Close()
		return fmt.Errorf("wayland post-surface roundtrip: %w", err)
	}

	renderer, err := render.NewManager(render.Config{
		Store:        b.opts.Store,
		Video:        b.opts.Video,
		Quality:      b.opts.Quality,
		SourceWidth:  b.opts.SourceWidth,
		SourceHeight: b.opts.SourceHeight,
	})
	if err != nil {
		conn.Close()
		return err
	}

	b.conn = conn
	b.state = state
	b.renderer = renderer
	b.bootstrapped = true
	b.frameIndex = 0

	b.log.Info().
		Int("outputs", len(state.outputs)).
		Int("layer_surfaces", len(state.surfaces)).
		Msg("wayland connected")
	return nil
}

// DiscoverMonitors reports the outputs in discovery order. Outputs that
// never sent a current mode fall back to common defaults so the rest of
// the pipeline keeps working.
func (b *Backend) DiscoverMonitors() ([]backend.Monitor, error) {
	if !b.bootstrapped {
		return nil, backend.ErrNotBootstrapped
	}

	monitors := make([]backend.Monitor, 0, len(b.state.outputOrder))
	for _, id := range b.state.outputOrder {
		out := b.state.outputs[id]
		monitors = append(monitors, backend.Monitor{
			ID:        out.GlobalName,
			Name:      outputName(out),
			Width:     defaultU32(out.Width, 1920),
			Height:    defaultU32(out.Height, 1080),
			RefreshHz: defaultU32(out.RefreshHz, 60),
		})
	}
	if len(monitors) == 0 {
		return nil, ErrNoOutputs
	}
	return monitors, nil
}

func (b *Backend) BuildSurfaces(monitors []backend.Monitor) ([]backend.SurfaceSpec, error) {
	if !b.bootstrapped {
		return nil, backend.ErrNotBootstrapped
	}
	specs := make([]backend.SurfaceSpec, 0, len(monitors))
	for _, m := range monitors {
		specs = append(specs, backend.SurfaceSpec{Monitor: m, Layer: backend.LayerBackground})
	}
	return specs, nil
}

// RenderFrame paints every surface that is configured and due a redraw.
// Surfaces whose shm buffers are both still held by the compositor are
// skipped and stay due, so they are retried on the next pass.
func (b *Backend) RenderFrame(surfaces []backend.SurfaceSpec) error {
	if !b.bootstrapped {
		return backend.ErrNotBootstrapped
	}

	if err := b.conn.DispatchPending(); err != nil {
		return fmt.Errorf("wayland dispatch: %w", err)
	}
	if len(b.state.ReadyOutputs()) == 0 {
		if err := b.conn.DispatchOnce(eventWait); err != nil {
			return fmt.Errorf("wayland dispatch: %w", err)
		}
	}

	ready := b.state.ReadyOutputs()
	b.logFrameProgress(len(surfaces), len(ready))
	if len(ready) == 0 {
		return nil
	}

	type pendingPresent struct {
		slot *SurfaceSlot
		buf  *shmBuffer
	}
	presents := make([]render.Present, 0, len(ready))
	pending := make([]pendingPresent, 0, len(ready))
	for _, id := range ready {
		out, ok := b.state.outputs[id]
		if !ok {
			continue
		}
		slot := b.state.SurfaceFor(id)
		if slot == nil {
			continue
		}
		width := defaultU32(out.Width, 1920)
		height := defaultU32(out.Height, 1080)

		pool, err := b.ensurePool(id, width, height)
		if err != nil {
			return err
		}
		buf := pool.acquire()
		if buf == nil {
			// Both buffers still held; retried next pass.
			continue
		}

		presents = append(presents, render.Present{
			MonitorID: outputName(out),
			Width:     width,
			Height:    height,
			Dst:       buf.data,
			DstStride: pool.stride,
		})
		pending = append(pending, pendingPresent{slot: slot, buf: buf})
	}
	if len(presents) == 0 {
		return nil
	}

	if err := b.renderer.RenderFrame(b.frameIndex, presents); err != nil {
		return err
	}

	for i, pp := range pending {
		p := presents[i]
		if err := pp.slot.Surface.Attach(pp.buf.proto, 0, 0); err != nil {
			return err
		}
		if err := pp.slot.Surface.DamageBuffer(0, 0, int32(p.Width), int32(p.Height)); err != nil {
			return err
		}
		slot := pp.slot
		if err := slot.MarkPresented(func() (*Callback, error) {
			cb, err := slot.Surface.Frame()
			if err != nil {
				return nil, err
			}
			cb.Done = func(uint32) { slot.ApplyFrameDone() }
			return cb, nil
		}); err != nil {
			return err
		}
		if err := pp.slot.Surface.Commit(); err != nil {
			return err
		}
		pp.buf.busy = true
	}
	b.frameIndex++
	return nil
}

// ensurePool returns the output's shm pool, rebuilding it when the
// output was resized.
func (b *Backend) ensurePool(id uint32, width, height uint32) (*shmPool, error) {
	if pool, ok := b.pools[id]; ok {
		if pool.matches(width, height) {
			return pool, nil
		}
		pool.destroy()
		delete(b.pools, id)
	}
	pool, err := newShmPool(b.state.shm, width, height)
	if err != nil {
		return nil, fmt.Errorf("shm pool for output %d: %w", id, err)
	}
	b.pools[id] = pool
	return pool, nil
}

func (b *Backend) logFrameProgress(surfaceCount, readyCount int) {
	if b.frameIndex%120 != 0 {
		return
	}
	configured := 0
	pendingCallbacks := 0
	for _, slot := range b.state.surfaces {
		if slot.Configured {
			configured++
		}
		if slot.FramePending {
			pendingCallbacks++
		}
	}
	b.log.Debug().
		Uint64("frame", b.frameIndex).
		Int("surfaces", surfaceCount).
		Int("configured", configured).
		Int("ready", readyCount).
		Int("pending_callbacks", pendingCallbacks).
		Uint64("uploaded_frames", b.renderer.UploadedFrames()).
		Msg("render frame")
}

func (b *Backend) Stats() backend.Stats {
	s := backend.Stats{FrameIndex: b.frameIndex}
	if b.renderer != nil {
		s.UploadedFrames = b.renderer.UploadedFrames()
	}
	if b.state != nil {
		s.TotalSurfaces = len(b.state.surfaces)
		s.ReadySurfaces = len(b.state.ReadyOutputs())
	}
	return s
}

func (b *Backend) Close() error {
	for _, pool := range b.pools {
		pool.destroy()
	}
	b.pools = map[uint32]*shmPool{}
	if b.renderer != nil {
		b.renderer.Close()
		b.renderer = nil
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			return err
		}
		b.conn = nil
	}
	b.bootstrapped = false
	return nil
}

func outputName(out *OutputSlot) string {
	if out.Name != "" {
		return out.Name
	}
	return fmt.Sprintf("wl-output-%d", out.GlobalName)
}

func defaultU32(v, fallback uint32) uint32 {
	if v == 0 {
		return fallback
	}
	return v
}
