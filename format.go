package gralloc

// Format identifies the pixel layout of a buffer. The values mirror the
// conventional HAL pixel format codes so handles round-trip unchanged
// between processes that predate this library.
type Format int32

const (
	// FormatRGBA8888 is 32-bit RGBA, 8 bits per channel.
	FormatRGBA8888 Format = 1

	// FormatRGBX8888 is 32-bit RGB with an ignored alpha byte.
	FormatRGBX8888 Format = 2

	// FormatRGB888 is packed 24-bit RGB.
	FormatRGB888 Format = 3

	// FormatRGB565 is 16-bit RGB.
	FormatRGB565 Format = 4

	// FormatBGRA8888 is 32-bit BGRA, 8 bits per channel.
	FormatBGRA8888 Format = 5

	// FormatYCbCr420 is planar 4:2:0 YCbCr with interleaved chroma.
	FormatYCbCr420 Format = 0x23
)

// BytesPerPixel returns the bytes per pixel of f, or 0 if f is unknown.
// For planar YCbCr this is the bytes per luma sample.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA8888, FormatRGBX8888, FormatBGRA8888:
		return 4
	case FormatRGB888:
		return 3
	case FormatRGB565:
		return 2
	case FormatYCbCr420:
		return 1
	default:
		return 0
	}
}

// fourCC packs a DRM format code from its four character tag.
func fourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// DRM fourcc codes for the supported formats.
var drmFourCC = map[Format]uint32{
	FormatRGBA8888: fourCC('A', 'B', '2', '4'), // DRM_FORMAT_ABGR8888
	FormatRGBX8888: fourCC('X', 'B', '2', '4'), // DRM_FORMAT_XBGR8888
	FormatRGB888:   fourCC('B', 'G', '2', '4'), // DRM_FORMAT_BGR888
	FormatRGB565:   fourCC('R', 'G', '1', '6'), // DRM_FORMAT_RGB565
	FormatBGRA8888: fourCC('A', 'R', '2', '4'), // DRM_FORMAT_ARGB8888
	FormatYCbCr420: fourCC('N', 'V', '1', '2'), // DRM_FORMAT_NV12
}

// FourCC returns the DRM fourcc code for f and whether f is known.
func (f Format) FourCC() (uint32, bool) {
	cc, ok := drmFourCC[f]
	return cc, ok
}

// depth returns the color depth used by the legacy framebuffer setup call.
func (f Format) depth() int {
	switch f {
	case FormatRGBX8888, FormatBGRA8888, FormatRGBA8888:
		return 24
	case FormatRGB888:
		return 24
	case FormatRGB565:
		return 16
	default:
		return 0
	}
}

// YCbCrPlanes describes the per-plane addresses of a locked planar buffer.
type YCbCrPlanes struct {
	Y, Cb, Cr []byte

	// YStride and CStride are the luma and chroma strides in bytes.
	YStride int
	CStride int

	// ChromaStep is the distance in bytes between successive samples of
	// the same chroma channel.
	ChromaStep int
}
