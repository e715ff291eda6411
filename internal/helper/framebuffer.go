package helper

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/OShane-McKenzie/waylandhelper/internal/wayland"
)

// bufferFormat is the only pixel format this helper ever asks for:
// premultiplied 32-bit ARGB, little-endian channel order, so the client's
// in-memory word 0xAARRGGBB renders as alpha, red, green, blue.
const bufferFormat = wayland.ShmFormatARGB8888

const bytesPerPixel = 4

// FrameBuffer is the frame buffer binding: a client-supplied shared file
// mapped into this process and published to the compositor as a single
// wl_buffer carved from a one-buffer wl_shm_pool. It is exclusively owned
// by the surface session and is never shared across goroutines.
type FrameBuffer struct {
	// fd is initialized to -1 (a sentinel distinct from any standard
	// descriptor) before any cleanup path can run, so a teardown triggered
	// by a failure partway through Open never closes an unrelated fd
	// inherited from the parent process.
	fd int

	data   []byte
	width  uint32
	height uint32

	pool   *wayland.WlShmPool
	buffer *wayland.WlBuffer
}

// Open binds a new frame buffer at width x height from the regular file at
// path. The file is expected to already be sized to exactly
// width*height*4 bytes; Open does not truncate or extend it.
func Open(shm *wayland.WlShm, path string, width, height uint32) (*FrameBuffer, error) {
	fb := &FrameBuffer{fd: -1, width: width, height: height}

	size := int64(width) * int64(height) * bytesPerPixel
	if size <= 0 {
		return nil, newError(ShmOpen, path, fmt.Errorf("zero-sized frame buffer"))
	}

	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, newError(ShmOpen, path, err)
	}
	fb.fd = fd

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		fb.fd = -1
		return nil, newError(Mmap, path, err)
	}
	fb.data = data

	pool, err := shm.CreatePool(fd, int32(size))
	if err != nil {
		unix.Munmap(data)
		unix.Close(fd)
		fb.fd = -1
		return nil, newError(ShmBuffers, path, err)
	}
	fb.pool = pool

	stride := int32(width) * bytesPerPixel
	buffer, err := pool.CreateBuffer(0, int32(width), int32(height), stride, bufferFormat)
	if err != nil {
		_ = pool.Destroy()
		unix.Munmap(data)
		unix.Close(fd)
		fb.fd = -1
		return nil, newError(ShmBuffers, path, err)
	}
	fb.buffer = buffer

	// The pool and buffer now hold the compositor's own reference to the
	// shared memory (duplicated across the socket by CreatePool's SCM_RIGHTS
	// send); our local descriptor is only needed to establish the mapping
	// above and can be closed immediately.
	unix.Close(fd)
	fb.fd = -1

	return fb, nil
}

// Bytes returns the mapped pixel buffer. The client writes premultiplied
// ARGB words into it directly; the helper never interprets the contents.
func (fb *FrameBuffer) Bytes() []byte {
	return fb.data
}

// Blank zeroes the entire mapping. Used on bind and resize before the
// first attach so the compositor never presents uninitialized memory.
func (fb *FrameBuffer) Blank() {
	for i := range fb.data {
		fb.data[i] = 0
	}
}

// Width and Height return the buffer's current dimensions.
func (fb *FrameBuffer) Width() uint32  { return fb.width }
func (fb *FrameBuffer) Height() uint32 { return fb.height }

// Buffer returns the wl_buffer handle to attach to the surface. The same
// handle is attached every frame; the client's single mmap region backs it
// for as long as the dimensions are unchanged.
func (fb *FrameBuffer) Buffer() *wayland.WlBuffer {
	return fb.buffer
}

// Close tears the binding down in the order the spec mandates: release the
// buffer handle first, then the pool, then unmap. Safe to call on a nil
// receiver.
func (fb *FrameBuffer) Close() {
	if fb == nil {
		return
	}
	if fb.buffer != nil {
		_ = fb.buffer.Destroy()
		fb.buffer = nil
	}
	if fb.pool != nil {
		_ = fb.pool.Destroy()
		fb.pool = nil
	}
	if fb.data != nil {
		_ = unix.Munmap(fb.data)
		fb.data = nil
	}
}
