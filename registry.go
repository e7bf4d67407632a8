package gralloc

import "fmt"

// Registry is the process-wide map from handle identity to the local
// BufferObject tracking it. Entries live exactly as long as a referencing
// buffer exists; the registry itself holds no reference.
//
// Registry is not internally synchronized: it is owned by a Module and
// guarded by the module mutex, or by a test.
type Registry struct {
	bos map[uint64]*BufferObject
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bos: make(map[uint64]*BufferObject)}
}

// Len returns the number of tracked buffers.
func (r *Registry) Len() int { return len(r.bos) }

// create allocates a fresh buffer through the device's driver and enters
// it into the registry with one reference.
func (r *Registry) create(dev *Device, width, height int, format Format, usage Usage) (*BufferObject, error) {
	h := NewHandle(width, height, format, usage)

	buf, err := dev.drv.Alloc(h)
	if err != nil {
		return nil, fmt.Errorf("gralloc: alloc %dx%d format %d: %w",
			width, height, format, err)
	}

	bo := &BufferObject{
		handle:   h,
		dev:      dev,
		buf:      buf,
		refcount: 1,
	}
	r.bos[h.ID] = bo

	Logger().Debug("created buffer", "handle", h, "driver", dev.drv.Name())
	return bo, nil
}

// resolve returns the buffer tracked for h. When h is unknown and dev is
// non-nil, the handle is imported: the driver constructs a local buffer
// around the existing backing memory and the registry starts tracking it
// with one reference (the import's own). With a nil dev the resolution is
// check-only and unknown handles fail.
func (r *Registry) resolve(h *Handle, dev *Device) (*BufferObject, error) {
	if h == nil {
		return nil, ErrInvalidHandle
	}
	if bo, ok := r.bos[h.ID]; ok {
		return bo, nil
	}

	// check only
	if dev == nil {
		return nil, fmt.Errorf("%w: unknown handle id %d", ErrInvalidHandle, h.ID)
	}

	if !h.Transferable() {
		return nil, fmt.Errorf("%w: no backing name or descriptor", ErrInvalidHandle)
	}

	buf, err := dev.drv.Alloc(h)
	if err != nil {
		return nil, fmt.Errorf("gralloc: import handle id %d: %w", h.ID, err)
	}

	bo := &BufferObject{
		handle:   h,
		dev:      dev,
		buf:      buf,
		imported: true,
		refcount: 1,
	}
	r.bos[h.ID] = bo

	Logger().Debug("imported buffer", "handle", h)
	return bo, nil
}

// register declares intent to use h, importing it first if this process
// has never seen it. Each successful call adds one reference.
func (r *Registry) register(h *Handle, dev *Device) error {
	bo, err := r.resolve(h, dev)
	if err != nil {
		return err
	}
	bo.refcount++
	return nil
}

// unregister releases a registration of h. Unregistering a handle that is
// not tracked is an error with no side effect.
//
// The registration's reference is dropped; for imported buffers the
// import's own implicit reference is dropped as well, so one unregister
// fully releases a buffer that was imported by register.
func (r *Registry) unregister(h *Handle) error {
	bo, err := r.resolve(h, nil)
	if err != nil {
		return err
	}

	r.decref(bo)
	if bo.imported {
		r.decref(bo)
	}
	return nil
}

// decref drops one reference and destroys the buffer when the count
// reaches zero. Destruction happens exactly once; further decrefs on a
// destroyed buffer are ignored.
func (r *Registry) decref(bo *BufferObject) {
	if bo.refcount == 0 {
		return
	}
	bo.refcount--
	if bo.refcount > 0 {
		return
	}

	delete(r.bos, bo.handle.ID)
	bo.destroy()
}
