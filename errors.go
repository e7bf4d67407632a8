package gralloc

import "errors"

// Common errors returned by the allocator. Operations wrap these with
// additional context where useful; test with errors.Is.
var (
	// ErrNotInitialized is returned when operations are called after Close.
	ErrNotInitialized = errors.New("gralloc: not initialized")

	// ErrNoDevice is returned when no usable DRM device can be opened.
	ErrNoDevice = errors.New("gralloc: no usable DRM device")

	// ErrNoDriver is returned when the opened device's kernel driver has
	// no registered backend factory.
	ErrNoDriver = errors.New("gralloc: no driver for device")

	// ErrInvalidHandle is returned for unknown or non-transferable handles.
	ErrInvalidHandle = errors.New("gralloc: invalid buffer handle")

	// ErrBadFormat is returned when a pixel format is not supported by the
	// requested operation.
	ErrBadFormat = errors.New("gralloc: unsupported pixel format")

	// ErrNotPermitted is returned when a lock request is incompatible with
	// a buffer's declared usage or with locks already held.
	ErrNotPermitted = errors.New("gralloc: usage not permitted")

	// ErrNoDisplay is returned when a presentation operation is attempted
	// without an initialized scanout output.
	ErrNoDisplay = errors.New("gralloc: no scanout output")
)
