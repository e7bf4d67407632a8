package gralloc

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers for the handle descriptor. These are part of the
// cross-process format and must never be renumbered. Field 1 is reserved:
// the identity token is process-local and never travels.
const (
	wireFieldWidth    = 2
	wireFieldHeight   = 3
	wireFieldFormat   = 4
	wireFieldUsage    = 5
	wireFieldStride   = 6
	wireFieldName     = 7
	wireFieldModifier = 8
	wireFieldPitch    = 9
	wireFieldOffset   = 10
	wireFieldFDCount  = 11
)

// MarshalHandle encodes h into its wire form and returns the file
// descriptors that must accompany the message out of band (via SCM_RIGHTS
// or an equivalent transport). The wire form records only how many
// descriptors travel with it; UnmarshalHandle reattaches them in order.
func MarshalHandle(h *Handle) ([]byte, []int) {
	var buf []byte

	buf = protowire.AppendTag(buf, wireFieldWidth, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(uint32(h.Width)))
	buf = protowire.AppendTag(buf, wireFieldHeight, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(uint32(h.Height)))
	buf = protowire.AppendTag(buf, wireFieldFormat, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(uint32(h.Format)))
	buf = protowire.AppendTag(buf, wireFieldUsage, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(h.Usage))
	buf = protowire.AppendTag(buf, wireFieldStride, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(uint32(h.Stride)))
	buf = protowire.AppendTag(buf, wireFieldName, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(h.Name))
	buf = protowire.AppendTag(buf, wireFieldModifier, protowire.VarintType)
	buf = protowire.AppendVarint(buf, h.Modifier)

	for _, p := range h.Pitches {
		buf = protowire.AppendTag(buf, wireFieldPitch, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(p))
	}
	for _, o := range h.Offsets {
		buf = protowire.AppendTag(buf, wireFieldOffset, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(o))
	}

	var fds []int
	if h.PrimeFD >= 0 {
		fds = []int{h.PrimeFD}
	}
	buf = protowire.AppendTag(buf, wireFieldFDCount, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(len(fds)))

	return buf, fds
}

// UnmarshalHandle decodes a handle from its wire form, reattaching the file
// descriptors received alongside it. Unknown fields are skipped so newer
// peers can extend the descriptor without breaking older ones.
//
// The decoded handle gets a fresh local identity token. Identities from
// other processes are drawn from their own counters and could collide with
// a local handle's; the buffer a foreign handle refers to is named by its
// GEM name or prime descriptor, never by ID.
func UnmarshalHandle(data []byte, fds ...int) (*Handle, error) {
	h := &Handle{ID: handleIDs.Add(1), PrimeFD: -1}
	var pitches, offsets int
	fdCount := 0

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("gralloc: bad handle wire tag: %w",
				protowire.ParseError(n))
		}
		data = data[n:]

		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("gralloc: bad handle wire field %d: %w",
					num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, fmt.Errorf("gralloc: bad handle wire varint: %w",
				protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case wireFieldWidth:
			h.Width = int32(v)
		case wireFieldHeight:
			h.Height = int32(v)
		case wireFieldFormat:
			h.Format = Format(v)
		case wireFieldUsage:
			h.Usage = Usage(v)
		case wireFieldStride:
			h.Stride = int32(v)
		case wireFieldName:
			h.Name = uint32(v)
		case wireFieldModifier:
			h.Modifier = v
		case wireFieldPitch:
			if pitches < maxPlanes {
				h.Pitches[pitches] = uint32(v)
				pitches++
			}
		case wireFieldOffset:
			if offsets < maxPlanes {
				h.Offsets[offsets] = uint32(v)
				offsets++
			}
		case wireFieldFDCount:
			fdCount = int(v)
		}
	}

	if fdCount != len(fds) {
		return nil, fmt.Errorf("gralloc: handle expects %d descriptors, got %d",
			fdCount, len(fds))
	}
	if fdCount > 0 {
		h.PrimeFD = fds[0]
	}
	return h, nil
}
