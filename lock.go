package gralloc

import "fmt"

// lock acquires a CPU-usage lock on bo for the given usage over the region
// (x, y, w, h). Multiple concurrent locks are allowed as long as their
// usages are compatible: a new lock's usage must be contained in the usage
// already held.
//
// If the merged usage includes any software read or write bit, the driver
// maps the buffer and the mapped bytes are returned; the driver waits out
// pending hardware access first. For purely hardware usages no mapping
// occurs and the kernel handles synchronization.
func (bo *BufferObject) lock(usage Usage, x, y, w, h int) ([]byte, error) {
	declared := bo.handle.Usage
	if declared&usage != usage {
		// Buffers flagged for scanout, texturing, encoding, or frequent
		// software reads may be locked beyond their declared usage so
		// software renderers and tests can reach them.
		if declared&usagePermissive == 0 {
			return nil, fmt.Errorf("%w: usage %#x not in declared %#x",
				ErrNotPermitted, uint32(usage), uint32(declared))
		}
	}

	if bo.lockCount > 0 && bo.lockedFor&usage != usage {
		return nil, fmt.Errorf("%w: usage %#x conflicts with held %#x",
			ErrNotPermitted, uint32(usage), uint32(bo.lockedFor))
	}

	merged := usage | bo.lockedFor

	var data []byte
	if merged.cpu() {
		d, err := bo.dev.drv.Map(bo.buf, bo.handle, x, y, w, h, merged.write())
		if err != nil {
			return nil, err
		}
		data = d
	}

	bo.lockCount++
	bo.lockedFor |= usage
	return data, nil
}

// unlock releases one lock on bo. Unlocking an unlocked buffer is a no-op.
// When the last lock is released the accumulated usage clears.
func (bo *BufferObject) unlock() {
	if bo.lockCount == 0 {
		return
	}

	if bo.lockedFor.cpu() {
		bo.dev.drv.Unmap(bo.buf)
	}

	bo.lockCount--
	if bo.lockCount == 0 {
		bo.lockedFor = 0
	}
}
