// Package drmio wraps the DRM ioctls the drm library does not cover:
// magic-token authentication, master control, GEM name management, PRIME
// descriptor exchange, and page flipping.
package drmio

import (
	"os"
	"unsafe"

	"github.com/NeowayLabs/drm"
	"github.com/NeowayLabs/drm/ioctl"
	"golang.org/x/sys/unix"
)

type (
	sysAuth struct {
		magic uint32
	}

	sysGemClose struct {
		handle uint32
		pad    uint32
	}

	sysGemFlink struct {
		handle uint32
		name   uint32
	}

	sysGemOpen struct {
		name   uint32
		handle uint32
		size   uint64
	}

	sysPrimeHandle struct {
		handle uint32
		flags  uint32
		fd     int32
	}

	sysCrtcPageFlip struct {
		crtcID   uint32
		fbID     uint32
		flags    uint32
		reserved uint32
		userData uint64
	}
)

var (
	// DRM_IOR(0x02, struct drm_auth)
	ioctlGetMagic = ioctl.NewCode(ioctl.Read,
		uint16(unsafe.Sizeof(sysAuth{})), drm.IOCTLBase, 0x02)

	// DRM_IOW(0x11, struct drm_auth)
	ioctlAuthMagic = ioctl.NewCode(ioctl.Write,
		uint16(unsafe.Sizeof(sysAuth{})), drm.IOCTLBase, 0x11)

	// DRM_IO(0x1e)
	ioctlSetMaster = ioctl.NewCode(ioctl.None, 0, drm.IOCTLBase, 0x1e)

	// DRM_IO(0x1f)
	ioctlDropMaster = ioctl.NewCode(ioctl.None, 0, drm.IOCTLBase, 0x1f)

	// DRM_IOW(0x09, struct drm_gem_close)
	ioctlGemClose = ioctl.NewCode(ioctl.Write,
		uint16(unsafe.Sizeof(sysGemClose{})), drm.IOCTLBase, 0x09)

	// DRM_IOWR(0x0a, struct drm_gem_flink)
	ioctlGemFlink = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGemFlink{})), drm.IOCTLBase, 0x0A)

	// DRM_IOWR(0x0b, struct drm_gem_open)
	ioctlGemOpen = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGemOpen{})), drm.IOCTLBase, 0x0B)

	// DRM_IOWR(0x2d, struct drm_prime_handle)
	ioctlPrimeHandleToFD = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysPrimeHandle{})), drm.IOCTLBase, 0x2D)

	// DRM_IOWR(0x2e, struct drm_prime_handle)
	ioctlPrimeFDToHandle = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysPrimeHandle{})), drm.IOCTLBase, 0x2E)

	// DRM_IOWR(0xB0, struct drm_mode_crtc_page_flip)
	ioctlModePageFlip = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysCrtcPageFlip{})), drm.IOCTLBase, 0xB0)
)

// PageFlipEvent requests a vblank event when the flip completes.
const PageFlipEvent = 0x01

func do(file *os.File, code uintptr, arg unsafe.Pointer) error {
	return ioctl.Do(uintptr(file.Fd()), code, uintptr(arg))
}

// GetMagic returns the authentication magic of the DRM connection.
func GetMagic(file *os.File) (uint32, error) {
	auth := &sysAuth{}
	if err := do(file, uintptr(ioctlGetMagic), unsafe.Pointer(auth)); err != nil {
		return 0, err
	}
	return auth.magic, nil
}

// AuthMagic authenticates a client's magic token. Requires master.
func AuthMagic(file *os.File, magic uint32) error {
	auth := &sysAuth{magic: magic}
	return do(file, uintptr(ioctlAuthMagic), unsafe.Pointer(auth))
}

// SetMaster makes the connection the DRM master.
func SetMaster(file *os.File) error {
	return do(file, uintptr(ioctlSetMaster), nil)
}

// DropMaster gives up DRM master status.
func DropMaster(file *os.File) error {
	return do(file, uintptr(ioctlDropMaster), nil)
}

// GemFlink publishes a GEM handle under a global name other processes can
// open.
func GemFlink(file *os.File, handle uint32) (uint32, error) {
	flink := &sysGemFlink{handle: handle}
	if err := do(file, uintptr(ioctlGemFlink), unsafe.Pointer(flink)); err != nil {
		return 0, err
	}
	return flink.name, nil
}

// GemOpen opens a GEM object by global name and returns the local handle
// and the object size.
func GemOpen(file *os.File, name uint32) (uint32, uint64, error) {
	open := &sysGemOpen{name: name}
	if err := do(file, uintptr(ioctlGemOpen), unsafe.Pointer(open)); err != nil {
		return 0, 0, err
	}
	return open.handle, open.size, nil
}

// GemClose drops the local reference to a GEM object.
func GemClose(file *os.File, handle uint32) error {
	gemClose := &sysGemClose{handle: handle}
	return do(file, uintptr(ioctlGemClose), unsafe.Pointer(gemClose))
}

// PrimeHandleToFD exports a GEM handle as a dma-buf file descriptor.
func PrimeHandleToFD(file *os.File, handle uint32) (int, error) {
	prime := &sysPrimeHandle{
		handle: handle,
		flags:  unix.O_CLOEXEC | unix.O_RDWR,
		fd:     -1,
	}
	if err := do(file, uintptr(ioctlPrimeHandleToFD), unsafe.Pointer(prime)); err != nil {
		return -1, err
	}
	return int(prime.fd), nil
}

// PrimeFDToHandle imports a dma-buf file descriptor as a GEM handle.
func PrimeFDToHandle(file *os.File, fd int) (uint32, error) {
	prime := &sysPrimeHandle{fd: int32(fd)}
	if err := do(file, uintptr(ioctlPrimeFDToHandle), unsafe.Pointer(prime)); err != nil {
		return 0, err
	}
	return prime.handle, nil
}

// PageFlip schedules fbID to be shown on crtcID at the next vblank.
func PageFlip(file *os.File, crtcID, fbID, flags uint32) error {
	flip := &sysCrtcPageFlip{crtcID: crtcID, fbID: fbID, flags: flags}
	return do(file, uintptr(ioctlModePageFlip), unsafe.Pointer(flip))
}
