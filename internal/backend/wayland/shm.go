package wayland

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const shmBufferCount = 2

// shmBuffer is one CPU-visible pixel buffer inside a pool. Busy is set
// when the buffer is attached to a surface and cleared by the
// compositor's release event.
type shmBuffer struct {
	proto *Buffer
	data  []byte
	busy  bool
}

// shmPool is a double-buffered wl_shm pool sized for one output. Frames
// are written into a free buffer, attached, and committed; ping-ponging
// the two buffers avoids painting into memory the compositor is still
// reading.
type shmPool struct {
	fd     int
	mem    []byte
	proto  *ShmPool
	width  uint32
	height uint32
	stride uint32
	bufs   [shmBufferCount]*shmBuffer
}

func newShmPool(shm *Shm, width, height uint32) (*shmPool, error) {
	stride := width * 4
	size := int(stride * height * shmBufferCount)

	fd, err := unix.MemfdCreate("kitsune-rendercore-shm", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ftruncate shm pool: %w", err)
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap shm pool: %w", err)
	}

	proto, err := shm.CreatePool(fd, int32(size))
	if err != nil {
		unix.Munmap(mem)
		unix.Close(fd)
		return nil, err
	}

	p := &shmPool{fd: fd, mem: mem, proto: proto, width: width, height: height, stride: stride}
	for i := 0; i < shmBufferCount; i++ {
		offset := int32(i) * int32(stride*height)
		buf, err := proto.CreateBuffer(offset, int32(width), int32(height), int32(stride), ShmFormatXRGB8888)
		if err != nil {
			p.destroy()
			return nil, err
		}
		sb := &shmBuffer{
			proto: buf,
			data:  mem[offset : offset+int32(stride*height)],
		}
		buf.Release = func() { sb.busy = false }
		p.bufs[i] = sb
	}
	return p, nil
}

// acquire returns a buffer the compositor is not reading, or nil when
// both are still held (the frame is skipped and retried).
func (p *shmPool) acquire() *shmBuffer {
	for _, b := range p.bufs {
		if !b.busy {
			return b
		}
	}
	return nil
}

func (p *shmPool) matches(width, height uint32) bool {
	return p.width == width && p.height == height
}

func (p *shmPool) destroy() {
	for _, b := range p.bufs {
		if b != nil && b.proto != nil {
			b.proto.Destroy()
		}
	}
	if p.proto != nil {
		p.proto.Destroy()
	}
	if p.mem != nil {
		unix.Munmap(p.mem)
		p.mem = nil
	}
	if p.fd >= 0 {
		unix.Close(p.fd)
		p.fd = -1
	}
}
