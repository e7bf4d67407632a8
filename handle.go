package gralloc

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// handleIDs hands out process-unique identity tokens for new handles.
var handleIDs atomic.Uint64

// maxPlanes is the most planes a handle can describe, matching the kernel
// framebuffer interface.
const maxPlanes = 4

// Handle is the process-transferable descriptor of a buffer: its identity,
// geometry, declared usage, and the kernel objects backing its memory.
//
// Within a process the ID is the registry key; across processes the handle
// travels in wire form (see MarshalHandle) accompanied by its PrimeFD, and
// the receiver resolves it through Module.Register.
//
// Ownership of the descriptor follows the buffer that carries it: a handle
// created by Alloc owns its PrimeFD and is released when the local buffer
// object is destroyed, while a handle materialized by import belongs to the
// registry entry created during import and dies with it.
type Handle struct {
	// ID is the process-local identity token and the registry key. It
	// never crosses the wire: UnmarshalHandle assigns a received handle a
	// fresh local ID, so a foreign process's counter can never collide
	// with a local allocation.
	ID uint64

	Width  int32
	Height int32
	Format Format
	Usage  Usage

	// Stride is the row pitch in bytes, filled by the driver on allocation.
	Stride int32

	// Name is the global GEM name of the backing object, or 0.
	Name uint32

	// PrimeFD is a dma-buf file descriptor for the backing object, or -1.
	// It is transferred between processes out of band.
	PrimeFD int

	// Modifier is the tiling/compression layout modifier of the backing
	// memory, 0 for linear.
	Modifier uint64

	// Pitches and Offsets carry per-plane layout hints for planar formats.
	Pitches [maxPlanes]uint32
	Offsets [maxPlanes]uint32
}

// NewHandle creates a descriptor for a buffer that has not been allocated
// yet. The driver fills Stride and the backing identifiers during Alloc.
func NewHandle(width, height int, format Format, usage Usage) *Handle {
	return &Handle{
		ID:      handleIDs.Add(1),
		Width:   int32(width),
		Height:  int32(height),
		Format:  format,
		Usage:   usage,
		PrimeFD: -1,
	}
}

// Transferable reports whether h carries a backing identifier another
// process could import: a GEM name or a prime file descriptor.
func (h *Handle) Transferable() bool {
	return h.Name != 0 || h.PrimeFD >= 0
}

// release closes the backing descriptors a locally allocated handle owns.
// Imported handles never own their descriptors and are not released.
func (h *Handle) release() {
	if h.PrimeFD >= 0 {
		if err := unix.Close(h.PrimeFD); err != nil {
			Logger().Warn("closing prime fd failed", "handle", h, "error", err)
		}
		h.PrimeFD = -1
	}
}

// String implements fmt.Stringer for log output.
func (h *Handle) String() string {
	return fmt.Sprintf("handle(id=%d %dx%d fmt=%d usage=%#x name=%d fd=%d)",
		h.ID, h.Width, h.Height, h.Format, uint32(h.Usage), h.Name, h.PrimeFD)
}
