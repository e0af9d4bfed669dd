package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// CPU HAL backend, registered as gputypes.BackendEmpty.
	_ "github.com/gogpu/wgpu/hal/software"
)

// ErrNoAdapter is returned when the HAL backend exposes no adapter.
var ErrNoAdapter = errors.New("wgpu: no adapter available")

// DeviceInfo contains information about the selected adapter.
type DeviceInfo struct {
	// Name is the adapter name (e.g., "NVIDIA GeForce RTX 3080").
	Name string
	// Vendor is the adapter vendor.
	Vendor string
	// DeviceType is the type of adapter (discrete, integrated, cpu, ...).
	DeviceType gputypes.DeviceType
	// Backend is the graphics API in use.
	Backend gputypes.Backend
	// Driver is the driver version string.
	Driver string
}

// String returns a human-readable description of the adapter.
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", d.Name, d.DeviceType, d.Backend)
}

// headless is a device opened by the backend itself.
type headless struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	info     DeviceInfo
}

// openHeadless opens the first adapter of a registered HAL backend.
func openHeadless(variant gputypes.Backend) (*headless, error) {
	api, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("wgpu: HAL backend %s is not registered", variant)
	}

	instance, err := api.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("wgpu: failed to create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	exposed := adapters[0]

	open, err := exposed.Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: failed to create device: %w", err)
	}

	return &headless{
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
		info: DeviceInfo{
			Name:       exposed.Info.Name,
			Vendor:     exposed.Info.Vendor,
			DeviceType: exposed.Info.DeviceType,
			Backend:    exposed.Info.Backend,
			Driver:     exposed.Info.Driver,
		},
	}, nil
}

// release destroys the device and instance.
func (h *headless) release() {
	if h.device != nil {
		h.device.Destroy()
		h.device = nil
	}
	if h.instance != nil {
		h.instance.Destroy()
		h.instance = nil
	}
}
