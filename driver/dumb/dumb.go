// Package dumb implements the gralloc backend driver on DRM dumb buffers:
// linear, CPU-mappable memory that every modern mode-setting driver
// provides. It registers itself for the kernel drivers known to scan out
// dumb buffers and as the generic fallback, so importing this package is
// enough to make a Module usable:
//
//	import _ "github.com/whswhs1128/hardware-drm-gralloc/driver/dumb"
package dumb

import (
	"fmt"
	"os"

	"github.com/NeowayLabs/drm/mode"
	"golang.org/x/sys/unix"

	gralloc "github.com/whswhs1128/hardware-drm-gralloc"
	"github.com/whswhs1128/hardware-drm-gralloc/internal/drmio"
)

// DriverName identifies this driver.
const DriverName = "dumb"

// kernelDrivers lists kernel drivers whose display engines accept dumb
// buffers for scanout.
var kernelDrivers = []string{
	"amdgpu", "i915", "msm", "nouveau", "radeon", "vmwgfx", "virtio_gpu",
}

// init registers the driver on package import.
func init() {
	for _, name := range kernelDrivers {
		gralloc.RegisterDriver(name, New)
	}
	gralloc.RegisterDriver(gralloc.GenericDriver, New)
}

// driver allocates dumb buffers on one open device.
type driver struct {
	file *os.File
}

// New creates a dumb-buffer driver for the opened device.
func New(dev *gralloc.Device) (gralloc.Driver, error) {
	return &driver{file: dev.File()}, nil
}

func (d *driver) Name() string { return DriverName }

// Destroy releases driver state. The device file belongs to the Device.
func (d *driver) Destroy() {}

// buffer is the driver-side state of one dumb or imported GEM object.
type buffer struct {
	gem  uint32
	size uint64
	data []byte

	// owned is true for buffers created here; imported GEM handles are
	// closed instead of destroyed.
	owned bool
}

func (b *buffer) KernelHandle() uint32 { return b.gem }

// Alloc creates a dumb buffer for h, or wraps existing backing memory
// when h carries a prime descriptor or GEM name.
func (d *driver) Alloc(h *gralloc.Handle) (gralloc.DriverBuffer, error) {
	if h.Transferable() {
		return d.importBuffer(h)
	}

	bpp := h.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: format %d", gralloc.ErrBadFormat, h.Format)
	}

	rows := int(h.Height)
	if h.Format == gralloc.FormatYCbCr420 {
		// One allocation covering the luma plane plus interleaved chroma.
		rows += (rows + 1) / 2
	}

	fb, err := mode.CreateFB(d.file, uint16(h.Width), uint16(rows), uint32(bpp*8))
	if err != nil {
		return nil, fmt.Errorf("dumb: create %dx%d bpp %d: %w", h.Width, rows, bpp*8, err)
	}

	h.Stride = int32(fb.Pitch)
	h.Pitches[0] = fb.Pitch
	h.Offsets[0] = 0
	if h.Format == gralloc.FormatYCbCr420 {
		h.Pitches[1] = fb.Pitch
		h.Offsets[1] = fb.Pitch * uint32(h.Height)
	}

	if name, err := drmio.GemFlink(d.file, fb.Handle); err == nil {
		h.Name = name
	}
	if fd, err := drmio.PrimeHandleToFD(d.file, fb.Handle); err == nil {
		h.PrimeFD = fd
	}
	if !h.Transferable() {
		gralloc.Logger().Warn("buffer has no transferable backing", "handle", h)
	}

	return &buffer{gem: fb.Handle, size: fb.Size, owned: true}, nil
}

// importBuffer wraps backing memory allocated elsewhere. No new storage is
// created. The prime descriptor is preferred; GEM name open is the
// fallback for peers without descriptor passing.
func (d *driver) importBuffer(h *gralloc.Handle) (gralloc.DriverBuffer, error) {
	if h.PrimeFD >= 0 {
		gem, err := drmio.PrimeFDToHandle(d.file, h.PrimeFD)
		if err == nil {
			return &buffer{gem: gem, size: importSize(h)}, nil
		}
		if h.Name == 0 {
			return nil, fmt.Errorf("dumb: import prime fd %d: %w", h.PrimeFD, err)
		}
	}

	gem, size, err := drmio.GemOpen(d.file, h.Name)
	if err != nil {
		return nil, fmt.Errorf("dumb: open gem name %d: %w", h.Name, err)
	}
	return &buffer{gem: gem, size: size}, nil
}

// importSize computes the mapping size of an imported buffer from its
// descriptor, including the chroma rows of planar formats.
func importSize(h *gralloc.Handle) uint64 {
	rows := int64(h.Height)
	if h.Format == gralloc.FormatYCbCr420 {
		rows += (rows + 1) / 2
	}
	return uint64(int64(h.Stride) * rows)
}

// Free releases the backing memory of buf.
func (d *driver) Free(b gralloc.DriverBuffer) {
	buf := b.(*buffer)
	if buf.data != nil {
		d.Unmap(buf)
	}

	var err error
	if buf.owned {
		err = mode.DestroyDumb(d.file, buf.gem)
	} else {
		err = drmio.GemClose(d.file, buf.gem)
	}
	if err != nil {
		gralloc.Logger().Warn("releasing buffer failed", "gem", buf.gem, "error", err)
	}
}

// Map maps the buffer for CPU access. Dumb mappings always cover the
// whole buffer; the region only informs the protection flags. The kernel
// serializes against pending scanout, so no explicit wait is needed.
func (d *driver) Map(b gralloc.DriverBuffer, h *gralloc.Handle, x, y, w, height int, write bool) ([]byte, error) {
	buf := b.(*buffer)
	if buf.data != nil {
		return buf.data, nil
	}

	offset, err := mode.MapDumb(d.file, buf.gem)
	if err != nil {
		return nil, fmt.Errorf("dumb: map gem %d: %w", buf.gem, err)
	}

	prot := unix.PROT_READ
	if write {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(d.file.Fd()), int64(offset), int(buf.size),
		prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("dumb: mmap gem %d: %w", buf.gem, err)
	}
	buf.data = data
	return data, nil
}

// Unmap ends CPU access started by Map.
func (d *driver) Unmap(b gralloc.DriverBuffer) {
	buf := b.(*buffer)
	if buf.data == nil {
		return
	}
	if err := unix.Munmap(buf.data); err != nil {
		gralloc.Logger().Warn("munmap failed", "gem", buf.gem, "error", err)
	}
	buf.data = nil
}

// ResolvePlanes implements gralloc.PlanarResolver. Dumb buffers are
// linear, so planes share the one GEM object at fixed offsets.
func (d *driver) ResolvePlanes(b gralloc.DriverBuffer, h *gralloc.Handle) (pitches, offsets, handles [4]uint32, err error) {
	buf := b.(*buffer)

	pitches[0] = uint32(h.Stride)
	offsets[0] = 0
	handles[0] = buf.gem

	if h.Format == gralloc.FormatYCbCr420 {
		pitches[1] = uint32(h.Stride)
		offsets[1] = uint32(h.Stride) * uint32(h.Height)
		handles[1] = buf.gem
	}
	return pitches, offsets, handles, nil
}
