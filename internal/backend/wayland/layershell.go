package wayland

// zwlr_layer_shell_v1 and zwlr_layer_surface_v1 client bindings, enough
// of the wlr-layer-shell protocol to place one full-screen background
// surface per output.

// LayerShell is zwlr_layer_shell_v1.
type LayerShell struct {
	c  *Conn
	id uint32
}

// Layer values of zwlr_layer_shell_v1.layer.
const (
	LayerBackground uint32 = 0
	LayerBottom     uint32 = 1
	LayerTop        uint32 = 2
	LayerOverlay    uint32 = 3
)

const layerShellRequestGetLayerSurface = 0

// GetLayerSurface wraps surface in a layer surface pinned to output on
// the given layer. namespace identifies the client to the compositor.
func (ls *LayerShell) GetLayerSurface(surface *Surface, output *Output, layer uint32, namespace string) (*LayerSurface, error) {
	l := &LayerSurface{c: ls.c, id: ls.c.newID()}
	ls.c.register(l.id, l)
	var outputID uint32
	if output != nil {
		outputID = output.id
	}
	req := newRequest(ls.id, layerShellRequestGetLayerSurface).
		putUint32(l.id).
		putUint32(surface.id).
		putUint32(outputID).
		putUint32(layer).
		putString(namespace)
	if err := ls.c.send(req); err != nil {
		return nil, err
	}
	return l, nil
}

// LayerSurface is zwlr_layer_surface_v1.
type LayerSurface struct {
	c  *Conn
	id uint32

	Configure func(serial, width, height uint32)
	Closed    func()
}

// Anchor bits of zwlr_layer_surface_v1.anchor.
const (
	AnchorTop    uint32 = 1
	AnchorBottom uint32 = 2
	AnchorLeft   uint32 = 4
	AnchorRight  uint32 = 8
	AnchorAll           = AnchorTop | AnchorBottom | AnchorLeft | AnchorRight
)

const (
	layerSurfaceRequestSetSize          = 0
	layerSurfaceRequestSetAnchor        = 1
	layerSurfaceRequestSetExclusiveZone = 2
	layerSurfaceRequestAckConfigure     = 6
)

// SetSize requests a surface size; (0,0) means "match the anchored
// region", the whole output when anchored to all edges.
func (l *LayerSurface) SetSize(width, height uint32) error {
	return l.c.send(newRequest(l.id, layerSurfaceRequestSetSize).
		putUint32(width).putUint32(height))
}

// SetAnchor anchors the surface to the given output edges.
func (l *LayerSurface) SetAnchor(anchor uint32) error {
	return l.c.send(newRequest(l.id, layerSurfaceRequestSetAnchor).putUint32(anchor))
}

// SetExclusiveZone sets the space reserved from other surfaces. -1
// means the surface reserves nothing and ignores other exclusive zones,
// the right setting for a wallpaper.
func (l *LayerSurface) SetExclusiveZone(zone int32) error {
	return l.c.send(newRequest(l.id, layerSurfaceRequestSetExclusiveZone).putInt32(zone))
}

// AckConfigure acknowledges a configure event's serial. Content may only
// be committed after the serial is acked.
func (l *LayerSurface) AckConfigure(serial uint32) error {
	return l.c.send(newRequest(l.id, layerSurfaceRequestAckConfigure).putUint32(serial))
}

func (l *LayerSurface) handleEvent(opcode uint16, body *reader) {
	switch opcode {
	case 0: // configure
		serial := body.uint32()
		width := body.uint32()
		height := body.uint32()
		if l.Configure != nil {
			l.Configure(serial, width, height)
		}
	case 1: // closed
		if l.Closed != nil {
			l.Closed()
		}
	}
}
