package gralloc

// Usage is a bitmask describing how a buffer's contents will be accessed:
// by the CPU (software), as a hardware texture or render target, by a video
// encoder, or scanned out directly to the display.
type Usage uint32

const (
	// UsageSWReadNever means the buffer is never read by software.
	UsageSWReadNever Usage = 0x0

	// UsageSWReadRarely means the buffer is read by software occasionally.
	UsageSWReadRarely Usage = 0x2

	// UsageSWReadOften means the buffer is read by software frequently.
	UsageSWReadOften Usage = 0x3

	// UsageSWReadMask selects all software-read bits.
	UsageSWReadMask Usage = 0xF

	// UsageSWWriteNever means the buffer is never written by software.
	UsageSWWriteNever Usage = 0x0

	// UsageSWWriteRarely means the buffer is written by software occasionally.
	UsageSWWriteRarely Usage = 0x20

	// UsageSWWriteOften means the buffer is written by software frequently.
	UsageSWWriteOften Usage = 0x30

	// UsageSWWriteMask selects all software-write bits.
	UsageSWWriteMask Usage = 0xF0

	// UsageHWTexture marks the buffer as a hardware texture source.
	UsageHWTexture Usage = 0x100

	// UsageHWRender marks the buffer as a hardware render target.
	UsageHWRender Usage = 0x200

	// UsageHW2D marks the buffer for 2D hardware blitting.
	UsageHW2D Usage = 0x400

	// UsageHWComposer marks the buffer for use by the hardware composer.
	UsageHWComposer Usage = 0x800

	// UsageHWFramebuffer marks the buffer for direct display scanout.
	UsageHWFramebuffer Usage = 0x1000

	// UsageHWVideoEncoder marks the buffer as a video encoder input.
	UsageHWVideoEncoder Usage = 0x10000
)

// usagePermissive is the set of declared usages that bypass the capability
// gate in lock: buffers flagged for any of these may be locked for usages
// outside their declared set, so software and test paths can access
// scanout, texture, and encoder buffers.
const usagePermissive = UsageSWReadOften | UsageHWFramebuffer |
	UsageHWTexture | UsageHWVideoEncoder

// cpu reports whether u includes any software read or write bit.
func (u Usage) cpu() bool {
	return u&(UsageSWReadMask|UsageSWWriteMask) != 0
}

// write reports whether u includes any software write bit.
func (u Usage) write() bool {
	return u&UsageSWWriteMask != 0
}
