package gralloc

// BufferObject is one allocated or imported surface: the driver-side
// buffer, its handle descriptor, and the in-process bookkeeping (reference
// count, lock state, scanout binding).
//
// Reference-count and lock-state mutation is serialized by the owning
// Module's mutex; BufferObject has no locking of its own.
type BufferObject struct {
	handle *Handle
	dev    *Device // back-reference, not ownership
	buf    DriverBuffer

	// imported is true when this process did not originate the
	// allocation. Imported buffers do not own their handle descriptor;
	// it belongs to the registry entry created during import.
	imported bool

	refcount int

	lockCount int
	lockedFor Usage

	// fbID is the scanout framebuffer bound to this buffer, 0 if none.
	fbID uint32
}

// Handle returns the descriptor of bo. The returned handle is shared with
// the registry; callers must not mutate it.
func (bo *BufferObject) Handle() *Handle { return bo.handle }

// Imported reports whether the buffer was created by importing a handle
// allocated in another process.
func (bo *BufferObject) Imported() bool { return bo.imported }

// RefCount returns the current reference count.
func (bo *BufferObject) RefCount() int { return bo.refcount }

// destroy tears the buffer down: detach any bound framebuffer (an object
// scanned out by the display cannot be freed while bound), free the driver
// buffer, and for non-imported buffers release the handle descriptor.
// Called only from Registry.decref when the count reaches zero.
func (bo *BufferObject) destroy() {
	Logger().Debug("destroying buffer", "handle", bo.handle, "imported", bo.imported)

	bo.dev.unbindFB(bo)
	bo.dev.drv.Free(bo.buf)
	if !bo.imported {
		bo.handle.release()
	}
}
