package gralloc

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestHandleWireRoundTrip(t *testing.T) {
	h := NewHandle(1920, 1080, FormatYCbCr420, UsageSWReadOften|UsageHWVideoEncoder)
	h.Stride = 1920
	h.Name = 77
	h.Modifier = 0x0100000000000002
	h.Pitches = [maxPlanes]uint32{1920, 1920, 0, 0}
	h.Offsets = [maxPlanes]uint32{0, 1920 * 1080, 0, 0}

	data, fds := MarshalHandle(h)
	if len(fds) != 0 {
		t.Fatalf("MarshalHandle() fds = %v, want none", fds)
	}

	got, err := UnmarshalHandle(data)
	if err != nil {
		t.Fatalf("UnmarshalHandle() error = %v", err)
	}

	// The identity token is process-local; everything else round-trips.
	want := *h
	want.ID = got.ID
	if *got != want {
		t.Errorf("UnmarshalHandle() = %+v, want %+v", got, &want)
	}
}

func TestUnmarshalHandleAssignsFreshLocalID(t *testing.T) {
	h := NewHandle(64, 64, FormatRGBA8888, 0)
	h.Name = 42

	data, _ := MarshalHandle(h)
	a, err := UnmarshalHandle(data)
	if err != nil {
		t.Fatalf("UnmarshalHandle() error = %v", err)
	}
	b, err := UnmarshalHandle(data)
	if err != nil {
		t.Fatalf("UnmarshalHandle() error = %v", err)
	}

	if a.ID == 0 || b.ID == 0 {
		t.Error("UnmarshalHandle() left the identity token unset")
	}
	if a.ID == h.ID || b.ID == h.ID {
		t.Error("UnmarshalHandle() reused the sender's identity token")
	}
	if a.ID == b.ID {
		t.Error("UnmarshalHandle() handed out the same identity twice")
	}
}

func TestHandleWireCarriesDescriptor(t *testing.T) {
	h := NewHandle(64, 64, FormatRGBA8888, UsageHWTexture)
	h.Stride = 256
	h.PrimeFD = 5

	data, fds := MarshalHandle(h)
	if len(fds) != 1 || fds[0] != 5 {
		t.Fatalf("MarshalHandle() fds = %v, want [5]", fds)
	}

	// The receiver gets the descriptor under a different number.
	got, err := UnmarshalHandle(data, 9)
	if err != nil {
		t.Fatalf("UnmarshalHandle() error = %v", err)
	}
	if got.PrimeFD != 9 {
		t.Errorf("PrimeFD = %d, want 9", got.PrimeFD)
	}
	if got.Name != h.Name {
		t.Errorf("Name = %d, want %d", got.Name, h.Name)
	}
}

func TestUnmarshalHandleDescriptorCountMismatch(t *testing.T) {
	h := NewHandle(64, 64, FormatRGBA8888, 0)
	h.PrimeFD = 5

	data, _ := MarshalHandle(h)
	if _, err := UnmarshalHandle(data); err == nil {
		t.Error("UnmarshalHandle() without the descriptor did not error")
	}
	if _, err := UnmarshalHandle(data, 9, 10); err == nil {
		t.Error("UnmarshalHandle() with extra descriptors did not error")
	}
}

func TestUnmarshalHandleSkipsUnknownFields(t *testing.T) {
	h := NewHandle(32, 32, FormatRGB565, 0)
	h.Stride = 64

	data, _ := MarshalHandle(h)
	data = protowire.AppendTag(data, 99, protowire.BytesType)
	data = protowire.AppendBytes(data, []byte("future extension"))

	got, err := UnmarshalHandle(data)
	if err != nil {
		t.Fatalf("UnmarshalHandle() error = %v", err)
	}
	if got.Width != h.Width || got.Stride != h.Stride {
		t.Errorf("UnmarshalHandle() = %+v, want %+v", got, h)
	}
}

func TestUnmarshalHandleTruncated(t *testing.T) {
	// A lone varint tag with no value following it.
	if _, err := UnmarshalHandle([]byte{0x08}); err == nil {
		t.Error("UnmarshalHandle(truncated) did not error")
	}
}
