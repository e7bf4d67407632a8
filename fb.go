package gralloc

import "fmt"

// needsFB reports whether bo is destined for direct scanout and the
// display output is up.
func (dev *Device) needsFB(bo *BufferObject) bool {
	return bo.handle.Usage&UsageHWFramebuffer != 0 && dev.out != nil
}

// bindFB lazily creates the scanout framebuffer for bo. Drivers that can
// resolve per-plane layout get the fourcc path; everything else goes
// through the legacy depth/bpp call.
func (dev *Device) bindFB(bo *BufferObject) error {
	if bo.fbID != 0 {
		return nil
	}
	if dev.out == nil {
		return ErrNoDisplay
	}

	h := bo.handle

	if res, ok := dev.drv.(PlanarResolver); ok {
		if cc, known := h.Format.FourCC(); known {
			pitches, offsets, handles, err := res.ResolvePlanes(bo.buf, h)
			if err != nil {
				return fmt.Errorf("gralloc: resolve planes: %w", err)
			}
			id, err := dev.out.AddFB2(int(h.Width), int(h.Height), cc,
				handles, pitches, offsets, h.Modifier)
			if err != nil {
				return fmt.Errorf("gralloc: add framebuffer: %w", err)
			}
			bo.fbID = id
			return nil
		}
	}

	depth := h.Format.depth()
	if depth == 0 {
		return fmt.Errorf("%w: format %d is not scanout capable", ErrBadFormat, h.Format)
	}
	id, err := dev.out.AddFB(int(h.Width), int(h.Height),
		depth, h.Format.BytesPerPixel()*8, uint32(h.Stride), bo.buf.KernelHandle())
	if err != nil {
		return fmt.Errorf("gralloc: add framebuffer: %w", err)
	}
	bo.fbID = id
	return nil
}

// unbindFB releases the scanout framebuffer bound to bo, if any. Called
// from destruction: a buffer being scanned out cannot be freed while the
// framebuffer still references it.
func (dev *Device) unbindFB(bo *BufferObject) {
	if bo.fbID == 0 || dev.out == nil {
		return
	}
	if err := dev.out.RmFB(bo.fbID); err != nil {
		Logger().Warn("removing framebuffer failed", "fb", bo.fbID, "error", err)
	}
	bo.fbID = 0
}

// post shows bo on the active display: a full mode set on the first post
// after the output comes up or master is acquired, a page flip afterwards.
func (dev *Device) post(bo *BufferObject) error {
	if err := dev.bindFB(bo); err != nil {
		return err
	}

	if dev.firstPost {
		if err := dev.out.SetCrtc(bo.fbID); err != nil {
			return err
		}
		dev.firstPost = false
		return nil
	}
	return dev.out.PageFlip(bo.fbID)
}
