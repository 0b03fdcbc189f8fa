// Package wayland implements the layer-shell compositor backend: a
// Wayland wire-protocol client, one background layer surface per output,
// and shared-memory presentation of GPU-rendered frames.
//
// The wire client speaks the protocol directly over the session socket.
// Messages carry a two-word header (object id, then size<<16|opcode,
// both little endian) followed by 32-bit-aligned arguments; file
// descriptors ride along as SCM_RIGHTS ancillary data.
package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
)

const (
	displayObjectID = 1
	headerSize      = 8
	maxMessageSize  = 1 << 16
)

// ErrNoWaylandSocket is returned when no session socket can be located.
var ErrNoWaylandSocket = errors.New("no wayland socket (WAYLAND_DISPLAY/XDG_RUNTIME_DIR unset?)")

// eventHandler receives decoded events for one protocol object.
type eventHandler interface {
	handleEvent(opcode uint16, body *reader)
}

// Conn is a connection to the Wayland compositor. It is not safe for
// concurrent use; the render loop is its only caller.
type Conn struct {
	sock     *net.UnixConn
	nextID   uint32
	handlers map[uint32]eventHandler
	pending  []byte
	readBuf  []byte

	// Set when the compositor reports a protocol error; every later
	// operation fails with it.
	fatal error
}

// Dial connects to the compositor named by WAYLAND_DISPLAY in
// XDG_RUNTIME_DIR (defaults to wayland-0).
func Dial() (*Conn, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return nil, ErrNoWaylandSocket
	}
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}
	path := display
	if !filepath.IsAbs(path) {
		path = filepath.Join(runtimeDir, display)
	}

	sock, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("failed to connect wayland display %s: %w", path, err)
	}
	return newConn(sock), nil
}

func newConn(sock *net.UnixConn) *Conn {
	return &Conn{
		sock:     sock,
		nextID:   displayObjectID, // first newID() hands out 2
		handlers: map[uint32]eventHandler{},
		readBuf:  make([]byte, maxMessageSize),
	}
}

// Close shuts the socket down. Protocol objects become unusable.
func (c *Conn) Close() error {
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	return err
}

// newID allocates the next client-side object id.
func (c *Conn) newID() uint32 {
	c.nextID++
	return c.nextID
}

func (c *Conn) register(id uint32, h eventHandler) {
	c.handlers[id] = h
}

func (c *Conn) unregister(id uint32) {
	delete(c.handlers, id)
}

// request is an outgoing message under construction.
type request struct {
	buf []byte
}

func newRequest(objectID uint32, opcode uint16) *request {
	r := &request{buf: make([]byte, headerSize, 64)}
	binary.LittleEndian.PutUint32(r.buf[0:], objectID)
	binary.LittleEndian.PutUint32(r.buf[4:], uint32(opcode)) // size patched on send
	return r
}

func (r *request) putUint32(v uint32) *request {
	var w [4]byte
	binary.LittleEndian.PutUint32(w[:], v)
	r.buf = append(r.buf, w[:]...)
	return r
}

func (r *request) putInt32(v int32) *request {
	return r.putUint32(uint32(v))
}

// putString appends a length-prefixed NUL-terminated string padded to a
// 32-bit boundary.
func (r *request) putString(s string) *request {
	r.putUint32(uint32(len(s) + 1))
	r.buf = append(r.buf, s...)
	r.buf = append(r.buf, 0)
	for len(r.buf)%4 != 0 {
		r.buf = append(r.buf, 0)
	}
	return r
}

func (r *request) finish() []byte {
	size := uint32(len(r.buf))
	opcode := binary.LittleEndian.Uint32(r.buf[4:]) & 0xffff
	binary.LittleEndian.PutUint32(r.buf[4:], size<<16|opcode)
	return r.buf
}

// send writes one request to the socket.
func (c *Conn) send(r *request) error {
	if c.fatal != nil {
		return c.fatal
	}
	if _, err := c.sock.Write(r.finish()); err != nil {
		return fmt.Errorf("wayland write failed: %w", err)
	}
	return nil
}

// sendFD writes one request with fd attached as ancillary data, used by
// wl_shm.create_pool.
func (c *Conn) sendFD(r *request, fd int) error {
	if c.fatal != nil {
		return c.fatal
	}
	oob := unix.UnixRights(fd)
	if _, _, err := c.sock.WriteMsgUnix(r.finish(), oob, nil); err != nil {
		return fmt.Errorf("wayland write with fd failed: %w", err)
	}
	return nil
}

// reader decodes event arguments.
type reader struct {
	b   []byte
	off int
}

func (r *reader) uint32() uint32 {
	if r.off+4 > len(r.b) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *reader) int32() int32 { return int32(r.uint32()) }

func (r *reader) string() string {
	n := int(r.uint32())
	if n == 0 || r.off+n > len(r.b) {
		return ""
	}
	s := string(r.b[r.off : r.off+n-1]) // strip NUL
	r.off += (n + 3) &^ 3
	return s
}

// DispatchPending processes every event already queued on the socket
// without blocking.
func (c *Conn) DispatchPending() error {
	return c.dispatch(0)
}

// DispatchOnce blocks up to timeout for at least one event batch and
// processes everything that arrived. The caller controls pacing; this
// wait is always bounded.
func (c *Conn) DispatchOnce(timeout time.Duration) error {
	return c.dispatch(timeout)
}

func (c *Conn) dispatch(timeout time.Duration) error {
	if c.fatal != nil {
		return c.fatal
	}
	deadline := time.Now()
	if timeout > 0 {
		deadline = deadline.Add(timeout)
	}
	if err := c.sock.SetReadDeadline(deadline); err != nil {
		return err
	}

	n, err := c.sock.Read(c.readBuf)
	if n > 0 {
		c.pending = append(c.pending, c.readBuf[:n]...)
	}
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			// No events inside the window; not an error.
			return c.drain()
		}
		return fmt.Errorf("wayland read failed: %w", err)
	}
	return c.drain()
}

// drain parses and dispatches every complete message in the pending
// buffer. Partial trailing messages stay buffered for the next read.
func (c *Conn) drain() error {
	for len(c.pending) >= headerSize {
		objectID := binary.LittleEndian.Uint32(c.pending[0:])
		word := binary.LittleEndian.Uint32(c.pending[4:])
		size := int(word >> 16)
		opcode := uint16(word & 0xffff)
		if size < headerSize {
			return fmt.Errorf("wayland protocol corruption: message size %d", size)
		}
		if len(c.pending) < size {
			return c.fatal
		}
		body := &reader{b: c.pending[headerSize:size]}
		c.dispatchEvent(objectID, opcode, body)
		c.pending = c.pending[size:]
	}
	return c.fatal
}

func (c *Conn) dispatchEvent(objectID uint32, opcode uint16, body *reader) {
	if objectID == displayObjectID {
		c.handleDisplayEvent(opcode, body)
		return
	}
	if h, ok := c.handlers[objectID]; ok {
		h.handleEvent(opcode, body)
	}
}

// wl_display events.
const (
	displayEventError   = 0
	displayEventDelete  = 1
	displayRequestSync  = 0
	displayRequestGetRegistry = 1
)

func (c *Conn) handleDisplayEvent(opcode uint16, body *reader) {
	switch opcode {
	case displayEventError:
		objectID := body.uint32()
		code := body.uint32()
		message := body.string()
		c.fatal = fmt.Errorf("wayland protocol error on object %d (code %d): %s",
			objectID, code, message)
		logger.WithComponent("wayland").Error().
			Uint32("object", objectID).
			Uint32("code", code).
			Str("message", message).
			Msg("compositor reported protocol error")
	case displayEventDelete:
		c.unregister(body.uint32())
	}
}

// Sync issues wl_display.sync and returns the callback tracking it.
func (c *Conn) Sync() (*Callback, error) {
	cb := newCallback(c)
	req := newRequest(displayObjectID, displayRequestSync).putUint32(cb.id)
	if err := c.send(req); err != nil {
		return nil, err
	}
	return cb, nil
}

// Roundtrip flushes the request stream and waits until the compositor
// has processed everything sent so far, dispatching events as they
// arrive.
func (c *Conn) Roundtrip() error {
	cb, err := c.Sync()
	if err != nil {
		return err
	}
	deadline := time.Now().Add(5 * time.Second)
	for !cb.done {
		if time.Now().After(deadline) {
			return fmt.Errorf("wayland roundtrip timed out")
		}
		if err := c.DispatchOnce(200 * time.Millisecond); err != nil {
			return err
		}
		if c.fatal != nil {
			return c.fatal
		}
	}
	return nil
}

// GetRegistry creates the registry object for global discovery.
func (c *Conn) GetRegistry() (*Registry, error) {
	reg := newRegistry(c)
	req := newRequest(displayObjectID, displayRequestGetRegistry).putUint32(reg.id)
	if err := c.send(req); err != nil {
		return nil, err
	}
	return reg, nil
}
