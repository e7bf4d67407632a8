package gralloc

import (
	"fmt"
	"sync"
)

// Module is the process-level allocator surface: it owns the device
// context, the handle registry, and the mutex that serializes registry
// mutation, reference counting, and lock transitions.
//
// The DRM device is opened lazily on first use; the display output comes
// up lazily on the first presentation call. All methods are safe for
// concurrent use.
type Module struct {
	mu     sync.Mutex
	cfg    *ProbeConfig
	dev    *Device
	reg    *Registry
	closed bool
}

// Option configures a Module.
type Option func(*Module)

// WithProbeConfig overrides the device probe configuration.
func WithProbeConfig(cfg *ProbeConfig) Option {
	return func(m *Module) { m.cfg = cfg }
}

// New creates a Module. Driver packages must be imported (usually blank)
// before the first operation so their factories are registered.
func New(opts ...Option) *Module {
	m := &Module{reg: NewRegistry()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// ensure opens the device on first use, and the display output when a
// presentation operation needs it. Callers hold m.mu.
func (m *Module) ensure(display bool) error {
	if m.closed {
		return ErrNotInitialized
	}
	if m.dev == nil {
		dev, err := OpenDevice(m.cfg)
		if err != nil {
			return err
		}
		m.dev = dev
	}
	if display {
		return m.dev.InitDisplay()
	}
	return nil
}

// Alloc allocates a width×height buffer with the given format and usage
// and returns its handle plus the row stride in pixels. Scanout buffers
// are bound to a framebuffer immediately; if that fails the fresh buffer
// is fully released.
func (m *Module) Alloc(width, height int, format Format, usage Usage) (*Handle, int, error) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, 0, fmt.Errorf("%w: format %d", ErrBadFormat, format)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensure(false); err != nil {
		return nil, 0, err
	}

	bo, err := m.reg.create(m.dev, width, height, format, usage)
	if err != nil {
		return nil, 0, err
	}

	if m.dev.needsFB(bo) {
		if err := m.dev.bindFB(bo); err != nil {
			m.reg.decref(bo)
			return nil, 0, err
		}
	}

	h := bo.handle
	return h, int(h.Stride) / bpp, nil
}

// Free releases the reference held by an allocation or a resolved handle.
// The buffer is destroyed when no registration holds it anymore.
func (m *Module) Free(h *Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bo, err := m.reg.resolve(h, nil)
	if err != nil {
		return err
	}
	m.reg.decref(bo)
	return nil
}

// Register declares intent to use h in this process, importing the buffer
// if it was allocated elsewhere. Each successful Register adds one
// reference released by Unregister.
func (m *Module) Register(h *Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensure(false); err != nil {
		return err
	}
	return m.reg.register(h, m.dev)
}

// Unregister releases a registration of h. For imported buffers the
// import's implicit reference is released as well.
func (m *Module) Unregister(h *Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reg.unregister(h)
}

// Lock acquires a CPU-usage lock on the buffer behind h over the region
// (x, y, w, height). For software usages the mapped bytes are returned.
func (m *Module) Lock(h *Handle, usage Usage, x, y, w, height int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bo, err := m.reg.resolve(h, nil)
	if err != nil {
		return nil, err
	}
	return bo.lock(usage, x, y, w, height)
}

// LockYCbCr locks a planar YCbCr buffer and returns its per-plane
// addresses. Only FormatYCbCr420 buffers can be locked this way, and the
// requested usage must include software access.
func (m *Module) LockYCbCr(h *Handle, usage Usage, x, y, w, height int) (*YCbCrPlanes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bo, err := m.reg.resolve(h, nil)
	if err != nil {
		return nil, err
	}
	if bo.handle.Format != FormatYCbCr420 {
		return nil, fmt.Errorf("%w: format %d is not planar YCbCr", ErrBadFormat, bo.handle.Format)
	}

	data, err := bo.lock(usage, x, y, w, height)
	if err != nil {
		return nil, err
	}
	if data == nil {
		bo.unlock()
		return nil, fmt.Errorf("%w: YCbCr lock needs software usage", ErrNotPermitted)
	}

	stride := int(bo.handle.Stride)
	luma := stride * int(bo.handle.Height)
	planes := &YCbCrPlanes{
		Y:          data[:luma],
		Cb:         data[luma:],
		YStride:    stride,
		CStride:    stride,
		ChromaStep: 2,
	}
	if len(planes.Cb) > 1 {
		planes.Cr = planes.Cb[1:]
	}
	return planes, nil
}

// Unlock releases one lock on the buffer behind h. Unlocking an unlocked
// buffer is a no-op.
func (m *Module) Unlock(h *Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bo, err := m.reg.resolve(h, nil)
	if err != nil {
		return err
	}
	bo.unlock()
	return nil
}

// FD returns the file descriptor of the device connection.
func (m *Module) FD() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensure(false); err != nil {
		return -1, err
	}
	return m.dev.FD(), nil
}

// GetMagic returns the authentication magic of the device connection.
func (m *Module) GetMagic() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensure(false); err != nil {
		return 0, err
	}
	return m.dev.GetMagic()
}

// AuthMagic authenticates another client's magic token.
func (m *Module) AuthMagic(magic uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensure(false); err != nil {
		return err
	}
	return m.dev.AuthMagic(magic)
}

// EnterVT makes this process the display master. The next Post performs a
// full mode set.
func (m *Module) EnterVT() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensure(false); err != nil {
		return err
	}
	return m.dev.SetMaster()
}

// LeaveVT gives up display-master status.
func (m *Module) LeaveVT() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensure(false); err != nil {
		return err
	}
	m.dev.DropMaster()
	return nil
}

// Post shows the buffer behind h on the active display, bringing the
// display output up if needed and lazily binding a framebuffer to the
// buffer.
func (m *Module) Post(h *Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensure(true); err != nil {
		return err
	}

	bo, err := m.reg.resolve(h, nil)
	if err != nil {
		return err
	}
	return m.dev.post(bo)
}

// CompositionComplete marks the end of a composition pass. With a
// pipelined display path pending driver work is flushed without waiting;
// otherwise it is drained. Drivers without queued work ignore this.
func (m *Module) CompositionComplete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensure(true); err != nil {
		return err
	}

	fl, ok := m.dev.drv.(Flusher)
	if !ok {
		return nil
	}
	if m.dev.out.Pipelined() {
		return fl.Flush()
	}
	return fl.Finish()
}

// ResolveFormat returns the per-plane pitches, offsets, and kernel handles
// of the buffer behind h, for drivers that can resolve planar layout.
func (m *Module) ResolveFormat(h *Handle) (pitches, offsets, handles [maxPlanes]uint32, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bo, rerr := m.reg.resolve(h, nil)
	if rerr != nil {
		err = rerr
		return
	}
	res, ok := bo.dev.drv.(PlanarResolver)
	if !ok {
		err = fmt.Errorf("gralloc: driver %q cannot resolve planes", bo.dev.drv.Name())
		return
	}
	return res.ResolvePlanes(bo.buf, bo.handle)
}

// GEMName returns the global GEM name of the buffer behind h, or 0 if the
// backing object has none.
func (m *Module) GEMName(h *Handle) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bo, err := m.reg.resolve(h, nil)
	if err != nil {
		return 0, err
	}
	return bo.handle.Name, nil
}

// PrimeFD returns the dma-buf descriptor of the buffer behind h, or -1 if
// the backing object has none. The descriptor stays owned by the buffer.
func (m *Module) PrimeFD(h *Handle) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bo, err := m.reg.resolve(h, nil)
	if err != nil {
		return -1, err
	}
	return bo.handle.PrimeFD, nil
}

// Registered reports whether h is currently tracked in this process.
func (m *Module) Registered(h *Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.reg.resolve(h, nil)
	return err == nil
}

// Close tears the module down and closes the device connection. Callers
// must have released all buffers first. Operations after Close fail with
// ErrNotInitialized.
func (m *Module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	if n := m.reg.Len(); n > 0 {
		Logger().Warn("closing with live buffers", "count", n)
	}
	if m.dev != nil {
		m.dev.Destroy()
		m.dev = nil
	}
	return nil
}
