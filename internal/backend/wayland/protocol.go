package wayland

// Core protocol objects. Each object exposes its requests as methods and
// its events as assignable callback fields, one explicit state-update
// hook per event, in the usual listener shape of Go protocol clients.

// Registry is wl_registry.
type Registry struct {
	c  *Conn
	id uint32

	Global       func(name uint32, iface string, version uint32)
	GlobalRemove func(name uint32)
}

func newRegistry(c *Conn) *Registry {
	r := &Registry{c: c, id: c.newID()}
	c.register(r.id, r)
	return r
}

const registryRequestBind = 0

// Bind binds global `name` as interface iface at version, allocating and
// returning the new object id. The caller wraps the id in a typed object.
func (r *Registry) bind(name uint32, iface string, version uint32) (uint32, error) {
	id := r.c.newID()
	req := newRequest(r.id, registryRequestBind).
		putUint32(name).
		putString(iface).
		putUint32(version).
		putUint32(id)
	if err := r.c.send(req); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Registry) handleEvent(opcode uint16, body *reader) {
	switch opcode {
	case 0: // global
		name := body.uint32()
		iface := body.string()
		version := body.uint32()
		if r.Global != nil {
			r.Global(name, iface, version)
		}
	case 1: // global_remove
		if r.GlobalRemove != nil {
			r.GlobalRemove(body.uint32())
		}
	}
}

// BindCompositor binds wl_compositor.
func (r *Registry) BindCompositor(name, version uint32) (*Compositor, error) {
	id, err := r.bind(name, "wl_compositor", min32(version, 4))
	if err != nil {
		return nil, err
	}
	return &Compositor{c: r.c, id: id}, nil
}

// BindOutput binds one wl_output global.
func (r *Registry) BindOutput(name, version uint32) (*Output, error) {
	id, err := r.bind(name, "wl_output", min32(version, 4))
	if err != nil {
		return nil, err
	}
	o := &Output{c: r.c, id: id}
	r.c.register(id, o)
	return o, nil
}

// BindShm binds wl_shm.
func (r *Registry) BindShm(name, version uint32) (*Shm, error) {
	id, err := r.bind(name, "wl_shm", 1)
	if err != nil {
		return nil, err
	}
	s := &Shm{c: r.c, id: id}
	r.c.register(id, s)
	return s, nil
}

// BindLayerShell binds zwlr_layer_shell_v1.
func (r *Registry) BindLayerShell(name, version uint32) (*LayerShell, error) {
	id, err := r.bind(name, "zwlr_layer_shell_v1", min32(version, 4))
	if err != nil {
		return nil, err
	}
	return &LayerShell{c: r.c, id: id}, nil
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// Callback is wl_callback, a one-shot notification.
type Callback struct {
	c    *Conn
	id   uint32
	done bool

	Done func(data uint32)
}

func newCallback(c *Conn) *Callback {
	cb := &Callback{c: c, id: c.newID()}
	c.register(cb.id, cb)
	return cb
}

// Cancel unregisters a callback that can no longer fire, such as one
// armed on a surface the compositor has since closed. Without this the
// connection would keep a handler entry for the object forever.
func (cb *Callback) Cancel() {
	if cb.done {
		return
	}
	cb.done = true
	cb.c.unregister(cb.id)
}

func (cb *Callback) handleEvent(opcode uint16, body *reader) {
	if opcode != 0 {
		return
	}
	data := body.uint32()
	cb.done = true
	cb.c.unregister(cb.id)
	if cb.Done != nil {
		cb.Done(data)
	}
}

// Compositor is wl_compositor.
type Compositor struct {
	c  *Conn
	id uint32
}

const compositorRequestCreateSurface = 0

// CreateSurface creates a bare wl_surface.
func (co *Compositor) CreateSurface() (*Surface, error) {
	s := &Surface{c: co.c, id: co.c.newID()}
	co.c.register(s.id, s)
	req := newRequest(co.id, compositorRequestCreateSurface).putUint32(s.id)
	if err := co.c.send(req); err != nil {
		return nil, err
	}
	return s, nil
}

// Surface is wl_surface.
type Surface struct {
	c  *Conn
	id uint32
}

const (
	surfaceRequestAttach       = 1
	surfaceRequestFrame        = 3
	surfaceRequestCommit       = 6
	surfaceRequestDamageBuffer = 9
)

// Attach sets buf as the surface's next content. A nil buffer detaches.
func (s *Surface) Attach(buf *Buffer, x, y int32) error {
	var bufID uint32
	if buf != nil {
		bufID = buf.id
	}
	return s.c.send(newRequest(s.id, surfaceRequestAttach).
		putUint32(bufID).putInt32(x).putInt32(y))
}

// DamageBuffer marks a buffer-coordinate region as needing repaint.
func (s *Surface) DamageBuffer(x, y, width, height int32) error {
	return s.c.send(newRequest(s.id, surfaceRequestDamageBuffer).
		putInt32(x).putInt32(y).putInt32(width).putInt32(height))
}

// Frame requests a one-shot repaint notification for the next paint.
func (s *Surface) Frame() (*Callback, error) {
	cb := newCallback(s.c)
	if err := s.c.send(newRequest(s.id, surfaceRequestFrame).putUint32(cb.id)); err != nil {
		return nil, err
	}
	return cb, nil
}

// Commit atomically applies all pending surface state.
func (s *Surface) Commit() error {
	return s.c.send(newRequest(s.id, surfaceRequestCommit))
}

func (s *Surface) handleEvent(opcode uint16, body *reader) {
	// enter/leave are irrelevant for a surface pinned to one output.
}

// Output is wl_output. Events feed the OutputInfo callbacks.
type Output struct {
	c  *Conn
	id uint32

	Mode func(flags uint32, width, height, refresh int32)
	Name func(name string)
	Done func()
}

const outputModeCurrent = 0x1

func (o *Output) handleEvent(opcode uint16, body *reader) {
	switch opcode {
	case 1: // mode
		flags := body.uint32()
		width := body.int32()
		height := body.int32()
		refresh := body.int32()
		if o.Mode != nil {
			o.Mode(flags, width, height, refresh)
		}
	case 2: // done
		if o.Done != nil {
			o.Done()
		}
	case 4: // name
		if o.Name != nil {
			o.Name(body.string())
		}
	}
}

// Shm is wl_shm.
type Shm struct {
	c  *Conn
	id uint32
}

// wl_shm pixel formats (drm fourcc order, little endian in memory).
const (
	ShmFormatARGB8888 = 0
	ShmFormatXRGB8888 = 1
)

const shmRequestCreatePool = 0

// CreatePool shares size bytes of fd-backed memory with the compositor.
func (s *Shm) CreatePool(fd int, size int32) (*ShmPool, error) {
	p := &ShmPool{c: s.c, id: s.c.newID()}
	req := newRequest(s.id, shmRequestCreatePool).putUint32(p.id).putInt32(size)
	if err := s.c.sendFD(req, fd); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Shm) handleEvent(opcode uint16, body *reader) {
	// format advertisements; ARGB8888 and XRGB8888 support is mandatory.
}

// ShmPool is wl_shm_pool.
type ShmPool struct {
	c  *Conn
	id uint32
}

const (
	shmPoolRequestCreateBuffer = 0
	shmPoolRequestDestroy      = 1
)

// CreateBuffer carves a buffer out of the pool.
func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) (*Buffer, error) {
	b := &Buffer{c: p.c, id: p.c.newID()}
	p.c.register(b.id, b)
	req := newRequest(p.id, shmPoolRequestCreateBuffer).
		putUint32(b.id).
		putInt32(offset).
		putInt32(width).
		putInt32(height).
		putInt32(stride).
		putUint32(format)
	if err := p.c.send(req); err != nil {
		return nil, err
	}
	return b, nil
}

// Destroy releases the pool object; existing buffers stay valid.
func (p *ShmPool) Destroy() error {
	return p.c.send(newRequest(p.id, shmPoolRequestDestroy))
}

// Buffer is wl_buffer. Release fires when the compositor is done
// reading it and it may be reused.
type Buffer struct {
	c  *Conn
	id uint32

	Release func()
}

const bufferRequestDestroy = 0

func (b *Buffer) Destroy() error {
	b.c.unregister(b.id)
	return b.c.send(newRequest(b.id, bufferRequestDestroy))
}

func (b *Buffer) handleEvent(opcode uint16, body *reader) {
	if opcode == 0 && b.Release != nil {
		b.Release()
	}
}
