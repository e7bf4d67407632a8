package gralloc

import (
	"fmt"
	"os"

	"github.com/NeowayLabs/drm"

	"github.com/whswhs1128/hardware-drm-gralloc/internal/drmio"
	"github.com/whswhs1128/hardware-drm-gralloc/kms"
)

// Device owns the open connection to the kernel graphics device and the
// backend driver selected for it. It does not own the buffers allocated
// through it; those are tracked by the Registry and hold a back-reference.
type Device struct {
	file *os.File
	drv  Driver
	out  *kms.Output

	// firstPost is set when the display output comes up and when this
	// process becomes DRM master; the next post performs a full mode set
	// instead of a page flip.
	firstPost bool
}

// OpenDevice probes the host for the active display device, opens it, and
// selects a backend driver by matching the device's reported kernel driver
// name against the factory table. A nil cfg uses DefaultProbeConfig.
func OpenDevice(cfg *ProbeConfig) (*Device, error) {
	if cfg == nil {
		cfg = DefaultProbeConfig()
	}

	module, err := cfg.kernelModule()
	if err != nil {
		return nil, err
	}

	file, err := openCard(module, cfg.MaxCards)
	if err != nil {
		return nil, err
	}

	factory := driverFor(module)
	if factory == nil {
		file.Close()
		return nil, fmt.Errorf("%w: %q", ErrNoDriver, module)
	}

	dev := &Device{file: file}
	drv, err := factory(dev)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("gralloc: driver for %q: %w", module, err)
	}
	dev.drv = drv

	Logger().Info("device opened", "kernel", module, "driver", drv.Name())
	return dev, nil
}

// openCard scans the card nodes for the device driven by the wanted kernel
// module.
func openCard(module string, maxCards int) (*os.File, error) {
	for i := 0; i < maxCards; i++ {
		file, err := drm.OpenCard(i)
		if err != nil {
			continue
		}
		version, err := drm.GetVersion(file)
		if err == nil && version.Name == module {
			return file, nil
		}
		file.Close()
	}
	return nil, fmt.Errorf("%w: no card driven by %q", ErrNoDevice, module)
}

// File returns the open device node. Drivers use it for allocation and
// mapping ioctls; the Device retains ownership.
func (dev *Device) File() *os.File { return dev.file }

// FD returns the device file descriptor.
func (dev *Device) FD() int { return int(dev.file.Fd()) }

// Driver returns the backend driver selected for this device.
func (dev *Device) Driver() Driver { return dev.drv }

// Output returns the scanout output, or nil before InitDisplay.
func (dev *Device) Output() *kms.Output { return dev.out }

// GetMagic returns the authentication magic of this connection.
func (dev *Device) GetMagic() (uint32, error) {
	return drmio.GetMagic(dev.file)
}

// AuthMagic authenticates another client's magic token.
func (dev *Device) AuthMagic(magic uint32) error {
	return drmio.AuthMagic(dev.file, magic)
}

// SetMaster makes this connection the DRM master and arranges for the
// next post to perform a full mode set.
func (dev *Device) SetMaster() error {
	Logger().Debug("set master")
	err := drmio.SetMaster(dev.file)
	dev.firstPost = true
	return err
}

// DropMaster gives up DRM master status.
func (dev *Device) DropMaster() {
	if err := drmio.DropMaster(dev.file); err != nil {
		Logger().Warn("drop master failed", "error", err)
	}
}

// InitDisplay brings up the scanout output. It is a no-op when the output
// is already initialized.
func (dev *Device) InitDisplay() error {
	if dev.out != nil {
		return nil
	}
	out, err := kms.New(dev.file, Logger())
	if err != nil {
		return err
	}
	dev.out = out
	dev.firstPost = true
	return nil
}

// Destroy releases the driver state and closes the device connection.
// It must only be called when no buffers reference this device; that is
// the caller's responsibility, not verified here.
func (dev *Device) Destroy() {
	if dev.drv != nil {
		dev.drv.Destroy()
	}
	dev.file.Close()
}
