package gralloc

import (
	"sync"
)

// DriverFactory creates a driver instance for an opened device.
type DriverFactory func(dev *Device) (Driver, error)

// registry holds registered driver factories, keyed by kernel driver name.
var (
	driverMu        sync.RWMutex
	driverFactories = make(map[string]DriverFactory)
)

// GenericDriver is the factory-table key for the fallback driver consulted
// when no factory matches the device's kernel driver name.
const GenericDriver = ""

// RegisterDriver registers a driver factory for the given kernel driver
// name (e.g. "i915", "radeon"). This is typically called from init()
// functions in driver packages. If a factory with the same name is already
// registered, it will be replaced.
//
// Registering under GenericDriver installs a fallback used for any device
// whose kernel driver has no exact match.
func RegisterDriver(kernelName string, factory DriverFactory) {
	driverMu.Lock()
	defer driverMu.Unlock()
	driverFactories[kernelName] = factory
}

// UnregisterDriver removes a driver factory from the registry.
// This is useful for testing.
func UnregisterDriver(kernelName string) {
	driverMu.Lock()
	defer driverMu.Unlock()
	delete(driverFactories, kernelName)
}

// AvailableDrivers returns the kernel driver names with a registered
// factory. The generic fallback, if present, is reported as "".
func AvailableDrivers() []string {
	driverMu.RLock()
	defer driverMu.RUnlock()

	names := make([]string, 0, len(driverFactories))
	for name := range driverFactories {
		names = append(names, name)
	}
	return names
}

// IsDriverRegistered checks if a factory is registered for kernelName.
func IsDriverRegistered(kernelName string) bool {
	driverMu.RLock()
	defer driverMu.RUnlock()
	_, ok := driverFactories[kernelName]
	return ok
}

// driverFor returns the factory for kernelName, falling back to the
// generic factory. Returns nil if neither is registered.
func driverFor(kernelName string) DriverFactory {
	driverMu.RLock()
	defer driverMu.RUnlock()

	if f, ok := driverFactories[kernelName]; ok {
		return f
	}
	return driverFactories[GenericDriver]
}
