package gralloc

import (
	"errors"
	"testing"
)

func TestRegistryCreate(t *testing.T) {
	reg := NewRegistry()
	dev, drv := newFakeDevice()

	bo, err := reg.create(dev, 64, 32, FormatRGBA8888, UsageSWReadOften)
	if err != nil {
		t.Fatalf("create() error = %v", err)
	}
	if bo.RefCount() != 1 {
		t.Errorf("RefCount() = %d, want 1", bo.RefCount())
	}
	if bo.Imported() {
		t.Error("create() produced an imported buffer")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
	if drv.allocs != 1 {
		t.Errorf("driver allocs = %d, want 1", drv.allocs)
	}
	if bo.Handle().Stride == 0 {
		t.Error("create() left Stride unset")
	}
}

func TestRegistryCreateAllocFailure(t *testing.T) {
	reg := NewRegistry()
	dev, drv := newFakeDevice()
	drv.failAlloc = true

	if _, err := reg.create(dev, 64, 32, FormatRGBA8888, 0); err == nil {
		t.Fatal("create() with failing driver did not error")
	}
	if reg.Len() != 0 {
		t.Errorf("Len() after failed create = %d, want 0", reg.Len())
	}
}

func TestRegistryResolveKnown(t *testing.T) {
	reg := NewRegistry()
	dev, _ := newFakeDevice()

	bo, err := reg.create(dev, 8, 8, FormatRGB565, 0)
	if err != nil {
		t.Fatalf("create() error = %v", err)
	}

	got, err := reg.resolve(bo.Handle(), nil)
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if got != bo {
		t.Error("resolve() returned a different buffer for a known handle")
	}
	if got.RefCount() != 1 {
		t.Errorf("RefCount() after resolve = %d, want 1", got.RefCount())
	}
}

func TestRegistryResolveCheckOnlyUnknown(t *testing.T) {
	reg := NewRegistry()

	h := NewHandle(8, 8, FormatRGBA8888, 0)
	h.Name = 42
	if _, err := reg.resolve(h, nil); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("resolve(unknown, nil) error = %v, want ErrInvalidHandle", err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}

func TestRegistryResolveNilHandle(t *testing.T) {
	reg := NewRegistry()
	dev, _ := newFakeDevice()
	if _, err := reg.resolve(nil, dev); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("resolve(nil) error = %v, want ErrInvalidHandle", err)
	}
}

func TestRegistryResolveRejectsNonTransferable(t *testing.T) {
	reg := NewRegistry()
	dev, drv := newFakeDevice()

	h := NewHandle(8, 8, FormatRGBA8888, 0)
	if _, err := reg.resolve(h, dev); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("resolve(non-transferable) error = %v, want ErrInvalidHandle", err)
	}
	if drv.allocs != 0 {
		t.Errorf("driver allocs = %d, want 0", drv.allocs)
	}
}

func TestRegistryResolveImportsForeignHandle(t *testing.T) {
	reg := NewRegistry()
	dev, drv := newFakeDevice()

	h := NewHandle(16, 16, FormatRGBA8888, UsageSWReadOften)
	h.Name = 7
	h.Stride = 64

	bo, err := reg.resolve(h, dev)
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if !bo.Imported() {
		t.Error("Imported() = false, want true")
	}
	if bo.RefCount() != 1 {
		t.Errorf("RefCount() = %d, want 1", bo.RefCount())
	}

	// Resolving the same handle again must not import twice.
	again, err := reg.resolve(h, dev)
	if err != nil {
		t.Fatalf("second resolve() error = %v", err)
	}
	if again != bo {
		t.Error("second resolve() returned a different buffer")
	}
	if drv.allocs != 1 {
		t.Errorf("driver allocs = %d, want 1", drv.allocs)
	}
}

func TestRegistryImportsWireHandleDespiteIDCollision(t *testing.T) {
	reg := NewRegistry()
	dev, drv := newFakeDevice()

	local, err := reg.create(dev, 8, 8, FormatRGBA8888, 0)
	if err != nil {
		t.Fatalf("create() error = %v", err)
	}

	// A sending process draws IDs from its own counter, so the handle it
	// ships can carry the same ID as an unrelated local buffer.
	sent := NewHandle(64, 64, FormatRGBA8888, UsageSWReadOften)
	sent.ID = local.Handle().ID
	sent.Name = 42
	sent.Stride = 256

	data, fds := MarshalHandle(sent)
	foreign, err := UnmarshalHandle(data, fds...)
	if err != nil {
		t.Fatalf("UnmarshalHandle() error = %v", err)
	}

	bo, err := reg.resolve(foreign, dev)
	if err != nil {
		t.Fatalf("resolve(foreign) error = %v", err)
	}
	if bo == local {
		t.Fatal("resolve(foreign) returned the unrelated local buffer")
	}
	if !bo.Imported() {
		t.Error("Imported() = false, want true")
	}
	if bo.Handle().Width != 64 {
		t.Errorf("imported Width = %d, want 64", bo.Handle().Width)
	}
	if drv.allocs != 2 {
		t.Errorf("driver allocs = %d, want 2", drv.allocs)
	}
	if local.RefCount() != 1 {
		t.Errorf("local RefCount() = %d, want 1", local.RefCount())
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
}

func TestRegistryRegisterAddsReference(t *testing.T) {
	reg := NewRegistry()
	dev, _ := newFakeDevice()

	bo, err := reg.create(dev, 8, 8, FormatRGBA8888, 0)
	if err != nil {
		t.Fatalf("create() error = %v", err)
	}
	if err := reg.register(bo.Handle(), dev); err != nil {
		t.Fatalf("register() error = %v", err)
	}
	if bo.RefCount() != 2 {
		t.Errorf("RefCount() = %d, want 2", bo.RefCount())
	}
}

func TestRegistryRegisterImportsForeignHandle(t *testing.T) {
	reg := NewRegistry()
	dev, _ := newFakeDevice()

	h := NewHandle(16, 16, FormatRGBA8888, 0)
	h.Name = 9

	if err := reg.register(h, dev); err != nil {
		t.Fatalf("register() error = %v", err)
	}
	bo, err := reg.resolve(h, nil)
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	// One reference for the import, one for the registration.
	if bo.RefCount() != 2 {
		t.Errorf("RefCount() = %d, want 2", bo.RefCount())
	}

	if err := reg.register(h, dev); err != nil {
		t.Fatalf("second register() error = %v", err)
	}
	if bo.RefCount() != 3 {
		t.Errorf("RefCount() = %d, want 3", bo.RefCount())
	}
}

func TestRegistryUnregisterUnknownHasNoSideEffect(t *testing.T) {
	reg := NewRegistry()
	dev, _ := newFakeDevice()

	if _, err := reg.create(dev, 8, 8, FormatRGBA8888, 0); err != nil {
		t.Fatalf("create() error = %v", err)
	}

	h := NewHandle(8, 8, FormatRGBA8888, 0)
	h.Name = 3
	if err := reg.unregister(h); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("unregister(unknown) error = %v, want ErrInvalidHandle", err)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistryUnregisterLocalBuffer(t *testing.T) {
	reg := NewRegistry()
	dev, drv := newFakeDevice()

	bo, err := reg.create(dev, 8, 8, FormatRGBA8888, 0)
	if err != nil {
		t.Fatalf("create() error = %v", err)
	}
	if err := reg.register(bo.Handle(), dev); err != nil {
		t.Fatalf("register() error = %v", err)
	}

	// The registration's reference drops; the allocation's survives.
	if err := reg.unregister(bo.Handle()); err != nil {
		t.Fatalf("unregister() error = %v", err)
	}
	if bo.RefCount() != 1 {
		t.Errorf("RefCount() = %d, want 1", bo.RefCount())
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
	if drv.frees != 0 {
		t.Errorf("driver frees = %d, want 0", drv.frees)
	}
}

func TestRegistryUnregisterImportedReleasesImport(t *testing.T) {
	reg := NewRegistry()
	dev, drv := newFakeDevice()

	h := NewHandle(16, 16, FormatRGBA8888, 0)
	h.Name = 5

	if err := reg.register(h, dev); err != nil {
		t.Fatalf("register() error = %v", err)
	}

	// One unregister drops the registration and the import's own reference.
	if err := reg.unregister(h); err != nil {
		t.Fatalf("unregister() error = %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
	if drv.frees != 1 {
		t.Errorf("driver frees = %d, want 1", drv.frees)
	}
}

func TestRegistryDestroyExactlyOnce(t *testing.T) {
	reg := NewRegistry()
	dev, drv := newFakeDevice()

	bo, err := reg.create(dev, 8, 8, FormatRGBA8888, 0)
	if err != nil {
		t.Fatalf("create() error = %v", err)
	}

	reg.decref(bo)
	reg.decref(bo)
	reg.decref(bo)

	if drv.frees != 1 {
		t.Errorf("driver frees = %d, want 1", drv.frees)
	}
	if bo.RefCount() != 0 {
		t.Errorf("RefCount() = %d, want 0", bo.RefCount())
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}
