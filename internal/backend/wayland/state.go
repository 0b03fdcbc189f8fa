package wayland

import (
	"errors"
	"fmt"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
)

// Capability errors surfaced by bootstrap when the compositor cannot
// host a background wallpaper at all.
var (
	ErrMissingCompositor = errors.New("wl_compositor is not available")
	ErrMissingLayerShell = errors.New("zwlr_layer_shell_v1 is not available (compositor may not support layer-shell)")
	ErrNoOutputs         = errors.New("no wl_output globals discovered")
)

// OutputSlot tracks one monitor advertised by the compositor.
type OutputSlot struct {
	GlobalName uint32
	Proto      *Output

	Name      string
	Width     uint32
	Height    uint32
	RefreshHz uint32
}

// SurfaceSlot tracks one background layer surface and its repaint state
// machine:
//
//	Unconfigured -> Configured(needsRedraw)    on configure (serial acked)
//	needsRedraw  -> !needsRedraw               when a frame is presented
//	!needsRedraw -> needsRedraw                when the frame callback fires
//	any          -> Closed                     on closed (all state cleared)
//
// NeedsRedraw is set only by ApplyConfigure and ApplyFrameDone and
// cleared only by MarkPresented.
type SurfaceSlot struct {
	OutputGlobal uint32
	Surface      *Surface
	Layer        *LayerSurface

	Configured   bool
	NeedsRedraw  bool
	FramePending bool
	pending      *Callback
}

// ApplyConfigure records the compositor's geometry acknowledgment and
// makes the surface eligible for its first (or next) paint.
func (s *SurfaceSlot) ApplyConfigure() {
	s.Configured = true
	s.NeedsRedraw = true
}

// ApplyClosed drops the surface out of the rotation and clears all
// pending-notification bookkeeping. An outstanding frame callback will
// never fire on a closed surface, so it is unregistered here.
func (s *SurfaceSlot) ApplyClosed() {
	s.Configured = false
	s.NeedsRedraw = false
	s.FramePending = false
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
	}
}

// ApplyFrameDone handles a fired repaint notification.
func (s *SurfaceSlot) ApplyFrameDone() {
	s.FramePending = false
	s.pending = nil
	if s.Configured {
		s.NeedsRedraw = true
	}
}

// Ready reports whether the surface may be painted this frame.
func (s *SurfaceSlot) Ready() bool {
	return s.Configured && s.NeedsRedraw
}

// MarkPresented clears the redraw flag after a frame was actually
// committed for this surface, and re-arms the repaint notification via
// arm unless one is already outstanding. The armed callback is kept so a
// later close can unregister it.
func (s *SurfaceSlot) MarkPresented(arm func() (*Callback, error)) error {
	s.NeedsRedraw = false
	if s.FramePending {
		return nil
	}
	if arm != nil {
		cb, err := arm()
		if err != nil {
			return err
		}
		s.pending = cb
	}
	s.FramePending = true
	return nil
}

// State holds everything discovered from the compositor. Outputs keep
// their discovery order so iteration, and therefore present order within
// one pass, is deterministic.
type State struct {
	compositor *Compositor
	layerShell *LayerShell
	shm        *Shm

	outputs     map[uint32]*OutputSlot
	outputOrder []uint32
	surfaces    []*SurfaceSlot
}

func newState() *State {
	return &State{outputs: map[uint32]*OutputSlot{}}
}

// bindGlobals is the registry listener: it binds the three capabilities
// the backend needs and one object per advertised output.
func (st *State) bindGlobals(reg *Registry) {
	reg.Global = func(name uint32, iface string, version uint32) {
		var err error
		switch iface {
		case "wl_compositor":
			st.compositor, err = reg.BindCompositor(name, version)
		case "zwlr_layer_shell_v1":
			st.layerShell, err = reg.BindLayerShell(name, version)
		case "wl_shm":
			st.shm, err = reg.BindShm(name, version)
		case "wl_output":
			var out *Output
			out, err = reg.BindOutput(name, version)
			if err == nil {
				slot := &OutputSlot{GlobalName: name, Proto: out}
				st.outputs[name] = slot
				st.outputOrder = append(st.outputOrder, name)
				out.Mode = func(flags uint32, width, height, refresh int32) {
					if flags&outputModeCurrent == 0 {
						return
					}
					slot.Width = clampDim(width)
					slot.Height = clampDim(height)
					slot.RefreshHz = refreshHz(refresh)
				}
				out.Name = func(n string) { slot.Name = n }
			}
		}
		if err != nil {
			logger.WithComponent("wayland").Warn().
				Str("interface", iface).
				Err(err).
				Msg("failed to bind global")
		}
	}
	reg.GlobalRemove = func(name uint32) {
		if _, ok := st.outputs[name]; !ok {
			return
		}
		delete(st.outputs, name)
		for i, n := range st.outputOrder {
			if n == name {
				st.outputOrder = append(st.outputOrder[:i], st.outputOrder[i+1:]...)
				break
			}
		}
		logger.WithComponent("wayland").Info().
			Uint32("output", name).
			Msg("output removed by compositor")
	}
}

// checkCapabilities enforces the bootstrap contract.
func (st *State) checkCapabilities() error {
	if st.compositor == nil {
		return ErrMissingCompositor
	}
	if st.layerShell == nil {
		return ErrMissingLayerShell
	}
	if st.shm == nil {
		return errors.New("wl_shm is not available")
	}
	if len(st.outputs) == 0 {
		return ErrNoOutputs
	}
	return nil
}

// createLayerSurfaces builds one background layer surface per output:
// anchored to all edges, reserving no space, sized to the anchored
// region. Surfaces are created once and live as long as the process.
func (st *State) createLayerSurfaces(namespace string) error {
	if len(st.surfaces) > 0 {
		return nil
	}
	for _, name := range st.outputOrder {
		out := st.outputs[name]
		surface, err := st.compositor.CreateSurface()
		if err != nil {
			return fmt.Errorf("create_surface for output %d: %w", name, err)
		}
		layer, err := st.layerShell.GetLayerSurface(surface, out.Proto, LayerBackground, namespace)
		if err != nil {
			return fmt.Errorf("get_layer_surface for output %d: %w", name, err)
		}

		slot := &SurfaceSlot{OutputGlobal: name, Surface: surface, Layer: layer}
		layer.Configure = func(serial, width, height uint32) {
			// The serial must be acked before any content commit.
			if err := layer.AckConfigure(serial); err != nil {
				logger.WithComponent("wayland").Error().Err(err).Msg("ack_configure failed")
				return
			}
			slot.ApplyConfigure()
		}
		layer.Closed = func() {
			slot.ApplyClosed()
			logger.WithComponent("wayland").Warn().
				Uint32("output", slot.OutputGlobal).
				Msg("layer surface closed by compositor")
		}

		if err := layer.SetAnchor(AnchorAll); err != nil {
			return err
		}
		if err := layer.SetExclusiveZone(-1); err != nil {
			return err
		}
		if err := layer.SetSize(0, 0); err != nil {
			return err
		}
		if err := surface.Commit(); err != nil {
			return err
		}
		st.surfaces = append(st.surfaces, slot)
	}
	return nil
}

// ReadyOutputs lists, in discovery order, the outputs whose surfaces may
// be painted this frame.
func (st *State) ReadyOutputs() []uint32 {
	var ready []uint32
	for _, slot := range st.surfaces {
		if slot.Ready() {
			ready = append(ready, slot.OutputGlobal)
		}
	}
	return ready
}

// SurfaceFor returns the surface slot bound to output id.
func (st *State) SurfaceFor(id uint32) *SurfaceSlot {
	for _, slot := range st.surfaces {
		if slot.OutputGlobal == id {
			return slot
		}
	}
	return nil
}

func clampDim(v int32) uint32 {
	if v < 1 {
		return 1
	}
	return uint32(v)
}

func refreshHz(refreshMilliHz int32) uint32 {
	hz := float64(refreshMilliHz)/1000.0 + 0.5
	if hz < 1 {
		return 1
	}
	return uint32(hz)
}
