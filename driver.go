package gralloc

// Driver is the backend that performs the actual buffer allocation and
// mapping for one kernel graphics driver. Exactly one Driver instance is
// active per Device, selected by kernel driver name at creation time (see
// RegisterDriver). The core never inspects driver-internal state; it only
// sequences these calls under the module lock.
type Driver interface {
	// Name returns the driver identifier (e.g. "dumb", "i915").
	Name() string

	// Destroy releases all driver state. The device file stays open; it
	// belongs to the Device.
	Destroy()

	// Alloc creates the backing memory for h, or wraps existing backing
	// memory when h carries a GEM name or prime descriptor; such an import
	// creates no new storage. For fresh allocations the driver fills
	// h.Stride and the backing identifiers.
	Alloc(h *Handle) (DriverBuffer, error)

	// Free releases the backing memory of buf. For imported buffers this
	// drops the local reference to the shared kernel object.
	Free(buf DriverBuffer)

	// Map makes the region available for CPU access and returns the
	// mapped bytes. The driver is responsible for waiting out any pending
	// hardware access before returning.
	Map(buf DriverBuffer, h *Handle, x, y, w, height int, write bool) ([]byte, error)

	// Unmap ends CPU access started by Map.
	Unmap(buf DriverBuffer)
}

// DriverBuffer is the driver-private state of one allocated or imported
// buffer.
type DriverBuffer interface {
	// KernelHandle returns the GEM handle used for scanout setup.
	KernelHandle() uint32
}

// PlanarResolver is an optional interface for drivers that can report the
// per-plane layout of planar formats. Used when attaching a planar buffer
// to the display and by Module.ResolveFormat.
type PlanarResolver interface {
	ResolvePlanes(buf DriverBuffer, h *Handle) (pitches, offsets, handles [maxPlanes]uint32, err error)
}

// Flusher is an optional interface for drivers that queue hardware work.
// CompositionComplete calls Flush when the display path consumes buffers
// asynchronously and Finish when it does not.
type Flusher interface {
	// Flush submits pending work without waiting for it.
	Flush() error

	// Finish blocks until all previously submitted work has completed.
	Finish() error
}
