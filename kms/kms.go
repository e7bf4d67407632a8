// Package kms drives the minimal mode-setting the allocator needs: find
// the connected display connector and a CRTC for it, attach framebuffers
// to buffer objects, and post them to the screen.
package kms

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/NeowayLabs/drm/mode"

	"github.com/whswhs1128/hardware-drm-gralloc/internal/drmio"
)

// Common kms errors.
var (
	// ErrNoConnector is returned when no connector with an active display
	// is found.
	ErrNoConnector = errors.New("kms: no connected connector")

	// ErrNoCrtc is returned when no CRTC can be assigned to the connector.
	ErrNoCrtc = errors.New("kms: no usable CRTC")
)

// fbModifiers is the AddFB2 flag announcing per-plane layout modifiers.
const fbModifiers = 1 << 1

// Output is one scanout path: a connected connector, the CRTC feeding it,
// and the display mode in use.
type Output struct {
	file *os.File
	log  *slog.Logger

	connID uint32
	crtcID uint32
	mode   mode.Info

	pipelined bool
}

// New discovers the connected connector and its CRTC on an open DRM
// device. The first reported mode of the connector (its preferred mode)
// is selected.
func New(file *os.File, log *slog.Logger) (*Output, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	res, err := mode.GetResources(file)
	if err != nil {
		return nil, fmt.Errorf("kms: resources: %w", err)
	}

	var conn *mode.Connector
	for _, id := range res.Connectors {
		c, err := mode.GetConnector(file, id)
		if err != nil {
			continue
		}
		if c.Connection == mode.Connected && len(c.Modes) > 0 {
			conn = c
			break
		}
	}
	if conn == nil {
		return nil, ErrNoConnector
	}

	var crtcID uint32
	if conn.EncoderID != 0 {
		if enc, err := mode.GetEncoder(file, conn.EncoderID); err == nil {
			crtcID = enc.CrtcID
		}
	}
	if crtcID == 0 && len(res.Crtcs) > 0 {
		crtcID = res.Crtcs[0]
	}
	if crtcID == 0 {
		return nil, ErrNoCrtc
	}

	out := &Output{
		file:   file,
		log:    log,
		connID: conn.ID,
		crtcID: crtcID,
		mode:   conn.Modes[0],

		// Swaps go through page flips, which queue in the kernel.
		pipelined: true,
	}

	log.Info("display output",
		"connector", out.connID,
		"crtc", out.crtcID,
		"width", out.Width(),
		"height", out.Height(),
		"vrefresh", out.mode.Vrefresh)

	return out, nil
}

// Width returns the horizontal resolution of the active mode.
func (o *Output) Width() int { return int(o.mode.Hdisplay) }

// Height returns the vertical resolution of the active mode.
func (o *Output) Height() int { return int(o.mode.Vdisplay) }

// Mode returns the active display mode.
func (o *Output) Mode() mode.Info { return o.mode }

// Pipelined reports whether the display path consumes buffers
// asynchronously, in which case clients may flush instead of finishing.
func (o *Output) Pipelined() bool { return o.pipelined }

// AddFB attaches a single-plane buffer as a legacy framebuffer and returns
// its id.
func (o *Output) AddFB(width, height, depth, bpp int, pitch, gem uint32) (uint32, error) {
	return mode.AddFB(o.file, uint16(width), uint16(height),
		uint8(depth), uint8(bpp), pitch, gem)
}

// AddFB2 attaches a buffer as a framebuffer with an explicit fourcc format
// and per-plane layout, and returns its id.
func (o *Output) AddFB2(width, height int, pixelFormat uint32,
	handles, pitches, offsets [4]uint32, modifier uint64) (uint32, error) {

	var flags uint32
	modifiers := make([]uint64, 0, len(handles))
	for _, h := range handles {
		if h == 0 {
			break
		}
		modifiers = append(modifiers, modifier)
	}
	if modifier != 0 {
		flags = fbModifiers
	}

	return mode.AddFB2(o.file, uint16(width), uint16(height), pixelFormat,
		flags, pitches[:], offsets[:], handles[:], modifiers)
}

// RmFB detaches a framebuffer.
func (o *Output) RmFB(id uint32) error {
	return mode.RmFB(o.file, id)
}

// SetCrtc performs a full mode set showing fbID on the output.
func (o *Output) SetCrtc(fbID uint32) error {
	conn := o.connID
	m := o.mode
	if err := mode.SetCrtc(o.file, o.crtcID, fbID, 0, 0, &conn, 1, &m); err != nil {
		return fmt.Errorf("kms: set crtc %d: %w", o.crtcID, err)
	}
	return nil
}

// PageFlip schedules fbID to replace the currently scanned out buffer at
// the next vblank.
func (o *Output) PageFlip(fbID uint32) error {
	if err := drmio.PageFlip(o.file, o.crtcID, fbID, 0); err != nil {
		return fmt.Errorf("kms: page flip to fb %d: %w", fbID, err)
	}
	return nil
}
