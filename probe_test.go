package gralloc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDefaultProbeConfig(t *testing.T) {
	cfg := DefaultProbeConfig()
	if cfg.FBInfoPath != "/proc/fb" {
		t.Errorf("FBInfoPath = %q, want %q", cfg.FBInfoPath, "/proc/fb")
	}
	if cfg.MaxCards != 8 {
		t.Errorf("MaxCards = %d, want 8", cfg.MaxCards)
	}
	if cfg.Drivers["inteldrmfb"] != "i915" {
		t.Errorf("Drivers[inteldrmfb] = %q, want %q", cfg.Drivers["inteldrmfb"], "i915")
	}

	// The returned map is a copy; mutating it must not leak into the next call.
	cfg.Drivers["inteldrmfb"] = "mutated"
	if DefaultProbeConfig().Drivers["inteldrmfb"] != "i915" {
		t.Error("DefaultProbeConfig() shares its driver map between calls")
	}
}

func TestKernelModule(t *testing.T) {
	cfg := DefaultProbeConfig()
	cfg.FBInfoPath = writeTemp(t, "fb", "0 inteldrmfb\n")

	module, err := cfg.kernelModule()
	if err != nil {
		t.Fatalf("kernelModule() error = %v", err)
	}
	if module != "i915" {
		t.Errorf("kernelModule() = %q, want %q", module, "i915")
	}
}

func TestKernelModuleUnknownFramebuffer(t *testing.T) {
	cfg := DefaultProbeConfig()
	cfg.FBInfoPath = writeTemp(t, "fb", "0 vesafb\n")

	if _, err := cfg.kernelModule(); !errors.Is(err, ErrNoDevice) {
		t.Errorf("kernelModule() error = %v, want ErrNoDevice", err)
	}
}

func TestKernelModuleMissingFile(t *testing.T) {
	cfg := DefaultProbeConfig()
	cfg.FBInfoPath = filepath.Join(t.TempDir(), "absent")

	if _, err := cfg.kernelModule(); !errors.Is(err, ErrNoDevice) {
		t.Errorf("kernelModule() error = %v, want ErrNoDevice", err)
	}
}

func TestLoadProbeConfigMergesOverDefaults(t *testing.T) {
	path := writeTemp(t, "probe.yaml", `
max_cards: 4
drivers:
  simpledrmfb: simpledrm
  inteldrmfb: xe
`)

	cfg, err := LoadProbeConfig(path)
	if err != nil {
		t.Fatalf("LoadProbeConfig() error = %v", err)
	}
	if cfg.FBInfoPath != "/proc/fb" {
		t.Errorf("FBInfoPath = %q, want default", cfg.FBInfoPath)
	}
	if cfg.MaxCards != 4 {
		t.Errorf("MaxCards = %d, want 4", cfg.MaxCards)
	}
	if cfg.Drivers["simpledrmfb"] != "simpledrm" {
		t.Errorf("Drivers[simpledrmfb] = %q, want %q", cfg.Drivers["simpledrmfb"], "simpledrm")
	}
	if cfg.Drivers["inteldrmfb"] != "xe" {
		t.Errorf("Drivers[inteldrmfb] = %q, want override %q", cfg.Drivers["inteldrmfb"], "xe")
	}
	if cfg.Drivers["radeondrmfb"] != "radeon" {
		t.Errorf("Drivers[radeondrmfb] = %q, want default %q", cfg.Drivers["radeondrmfb"], "radeon")
	}
}

func TestLoadProbeConfigEmptyFile(t *testing.T) {
	cfg, err := LoadProbeConfig(writeTemp(t, "probe.yaml", ""))
	if err != nil {
		t.Fatalf("LoadProbeConfig() error = %v", err)
	}
	if cfg.MaxCards != 8 {
		t.Errorf("MaxCards = %d, want default 8", cfg.MaxCards)
	}
}

func TestLoadProbeConfigRejectsUnknownKeys(t *testing.T) {
	path := writeTemp(t, "probe.yaml", "max_crads: 4\n")
	if _, err := LoadProbeConfig(path); err == nil {
		t.Error("LoadProbeConfig() with a misspelled key did not error")
	}
}

func TestLoadProbeConfigMissingFile(t *testing.T) {
	if _, err := LoadProbeConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadProbeConfig() with a missing file did not error")
	}
}
