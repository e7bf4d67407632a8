// Package gralloc allocates and tracks graphics buffers on top of the
// Linux DRM subsystem.
//
// # Overview
//
// gralloc sits between a display stack and a set of pluggable kernel
// backend drivers. It allocates pixel buffers, exposes them through
// process-transferable handles, tracks their reference count across the
// processes that import them, arbitrates CPU map/unmap access under a
// usage-compatibility contract, and maintains an optional association with
// a scanout framebuffer for presentation.
//
// # Quick Start
//
//	import (
//	    "github.com/whswhs1128/hardware-drm-gralloc"
//	    _ "github.com/whswhs1128/hardware-drm-gralloc/driver/dumb"
//	)
//
//	m := gralloc.New()
//	defer m.Close()
//
//	h, stride, err := m.Alloc(640, 480, gralloc.FormatRGBX8888,
//	    gralloc.UsageSWWriteOften|gralloc.UsageHWFramebuffer)
//
// The returned handle can be serialized with MarshalHandle, passed to
// another process, and resolved there with Register.
//
// # Architecture
//
// The library is organized into:
//   - Public API: Module, Handle, BufferObject, Usage, Format
//   - Drivers: the Driver interface with a name-keyed factory table;
//     driver/dumb provides a generic dumb-buffer implementation
//   - kms: minimal connector/CRTC discovery and framebuffer posting
//   - internal/drmio: DRM ioctls not covered by the drm library
//
// # Concurrency
//
// All Module operations are safe for concurrent use. A single module-wide
// mutex serializes registry mutation, reference counting, and lock state
// transitions; blocking on hardware is delegated to the backend driver.
package gralloc

// Version information
const (
	// Version is the current version of the library
	Version = "1.0.0"

	// VersionMajor is the major version
	VersionMajor = 1

	// VersionMinor is the minor version
	VersionMinor = 0

	// VersionPatch is the patch version
	VersionPatch = 0
)
