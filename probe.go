package gralloc

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultFBDrivers maps the framebuffer driver name reported by /proc/fb
// to the kernel DRM module driving the same device.
var defaultFBDrivers = map[string]string{
	"amdgpudrmfb": "amdgpu",
	"inteldrmfb":  "i915",
	"nouveaufb":   "nouveau",
	"radeondrmfb": "radeon",
	"svgadrmfb":   "vmwgfx",
	"virtiodrmfb": "virtio_gpu",
}

// ProbeConfig controls how the active display device is located.
type ProbeConfig struct {
	// FBInfoPath is the pseudo-file naming the active framebuffer driver.
	FBInfoPath string `yaml:"fb_info_path"`

	// MaxCards bounds the scan over /dev/dri card nodes.
	MaxCards int `yaml:"max_cards"`

	// Drivers maps framebuffer driver names to kernel DRM module names.
	// Entries extend and override the compiled-in table.
	Drivers map[string]string `yaml:"drivers"`
}

// DefaultProbeConfig returns the compiled-in probe configuration.
func DefaultProbeConfig() *ProbeConfig {
	drivers := make(map[string]string, len(defaultFBDrivers))
	for k, v := range defaultFBDrivers {
		drivers[k] = v
	}
	return &ProbeConfig{
		FBInfoPath: "/proc/fb",
		MaxCards:   8,
		Drivers:    drivers,
	}
}

// LoadProbeConfig reads a YAML probe configuration from path and merges it
// over the defaults. Unknown keys are rejected.
func LoadProbeConfig(path string) (*ProbeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gralloc: read probe config: %w", err)
	}

	var file ProbeConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("gralloc: parse probe config %s: %w", path, err)
	}

	cfg := DefaultProbeConfig()
	if file.FBInfoPath != "" {
		cfg.FBInfoPath = file.FBInfoPath
	}
	if file.MaxCards > 0 {
		cfg.MaxCards = file.MaxCards
	}
	for k, v := range file.Drivers {
		cfg.Drivers[k] = v
	}
	return cfg, nil
}

// kernelModule reads the active framebuffer driver name and maps it to the
// kernel DRM module to open.
func (c *ProbeConfig) kernelModule() (string, error) {
	f, err := os.Open(c.FBInfoPath)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrNoDevice, c.FBInfoPath, err)
	}
	defer f.Close()

	var index int
	var name string
	if _, err := fmt.Fscanf(f, "%d %s", &index, &name); err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", ErrNoDevice, c.FBInfoPath, err)
	}

	module, ok := c.Drivers[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown framebuffer driver %q", ErrNoDevice, name)
	}
	return module, nil
}
